// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package keithley2000 talks to a Keithley 2000 digital multimeter over GPIB.
package keithley2000

import (
	"fmt"
	"strconv"
	"strings"
)

// ResetCommand puts the meter into a known state after connecting.
const ResetCommand = "*RST; status:preset; *cls"

// Function is a measurement function of the meter.
type Function int

// Available measurement functions. FunctionNone means nothing selected yet.
const (
	FunctionNone Function = iota
	DCV
	DCI
	Resistance
)

var functionDesc = map[Function]struct{ name, query string }{
	DCV:        {"DCV", ":measure:voltage:dc?"},
	DCI:        {"DCI", ":measure:current:dc?"},
	Resistance: {"R", ":measure:resistance?"},
}

// Functions lists the selectable functions in display order.
func Functions() []Function {
	return []Function{DCV, DCI, Resistance}
}

func (f Function) String() string {
	return functionDesc[f].name
}

// Query returns the SCPI query that takes one reading of f.
func (f Function) Query() string {
	return functionDesc[f].query
}

// ParseFunction accepts a function name such as "DCV" (case insensitive).
func ParseFunction(s string) (Function, error) {
	for _, f := range Functions() {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return FunctionNone, fmt.Errorf("unknown measurement function %q (want DCV, DCI or R)", s)
}

// Resource returns the VISA-style resource string for a GPIB address.
func Resource(addr int) string {
	return fmt.Sprintf("GPIB::%d", addr)
}

// ParseResource extracts the primary address from a resource string such as
// "GPIB::16" or "GPIB0::16::INSTR".
func ParseResource(s string) (int, error) {
	parts := strings.Split(s, "::")
	if len(parts) < 2 || !strings.HasPrefix(strings.ToUpper(parts[0]), "GPIB") {
		return 0, fmt.Errorf("%w: malformed resource %q", ErrConnection, s)
	}
	addr, err := strconv.Atoi(parts[1])
	if err != nil || !IsAddressValid(addr) {
		return 0, fmt.Errorf("%w: bad GPIB address in %q", ErrConnection, s)
	}
	return addr, nil
}

// Range of instrument addresses the meter can be set to.
const (
	MinAddress = 1
	MaxAddress = 30
)

// IsAddressValid reports whether addr lies in MinAddress..MaxAddress.
func IsAddressValid(addr int) bool {
	return addr >= MinAddress && addr <= MaxAddress
}

// parseReading returns the first numeric token of a measurement response.
// Responses with units attached (e.g. "+1.2E-03NVDC,+123.4SECS") are accepted.
func parseReading(s string) (float64, error) {
	tok, _, _ := strings.Cut(strings.TrimSpace(s), ",")
	tok = strings.TrimSpace(tok)
	// Longest numeric prefix wins, so a unit suffix is dropped.
	for i := len(tok); i > 0; i-- {
		if v, err := strconv.ParseFloat(tok[:i], 64); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unparsable reading %q", ErrQuery, s)
}
