// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import "sync"

// Readout texts.
const (
	PromptText       = "Select GPIB address and press *IDN?"
	ErrorText        = "ERROR!"
	AddressErrorText = "Error! Please Check GPIB Address"
)

// Display shows one line of text to the operator.
type Display interface {
	Show(s string)
}

// Readout is the single-line display holding the latest reading or message.
type Readout struct {
	mu   sync.RWMutex
	text string
}

// NewReadout returns a Readout showing the startup prompt.
func NewReadout() *Readout {
	return &Readout{text: PromptText}
}

// Show replaces the displayed text.
func (r *Readout) Show(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = s
}

// Text returns the displayed text.
func (r *Readout) Text() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}
