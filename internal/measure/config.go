// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package measure holds the operator-facing measurement logic: the selected
// settings, the accumulated readings, the start/stop polling state machine
// and export to a text file.
package measure

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gotmc/keithley2000"
)

// DefaultAddress is the GPIB address selected at startup.
const DefaultAddress = 16

// ErrInvalidConfig is returned by Start when a required setting is missing.
var ErrInvalidConfig = errors.New("invalid measurement settings")

// Periods are the selectable sampling periods, shortest first.
var Periods = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
}

// Config is the operator's current selection. A zero Function or Period
// means "not selected".
type Config struct {
	Address    int
	Function   keithley2000.Function
	Period     time.Duration
	SingleShot bool
}

// DefaultConfig returns the startup selection: address 16 and nothing else.
func DefaultConfig() Config {
	return Config{Address: DefaultAddress}
}

// Validate checks that the settings needed to start are present.
func (c Config) Validate() error {
	if c.Function == keithley2000.FunctionNone {
		return fmt.Errorf("%w: no measurement selected", ErrInvalidConfig)
	}
	if c.SingleShot {
		return nil
	}
	if !isPeriod(c.Period) {
		return fmt.Errorf("%w: no sampling period selected", ErrInvalidConfig)
	}
	return nil
}

// Label describes a repeating run; it heads the run's readings in the buffer.
func (c Config) Label() string {
	return fmt.Sprintf("Measurement: %s Sampling Period: %s", c.Function, FormatPeriod(c.Period))
}

// FormatPeriod renders a period in seconds the way the selector shows it,
// e.g. "0.5" or "20".
func FormatPeriod(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// ParsePeriod parses a period given in seconds. Only the values in Periods
// are accepted.
func ParsePeriod(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("sampling period %q: %w", s, err)
	}
	d := time.Duration(secs * float64(time.Second))
	if !isPeriod(d) {
		return 0, fmt.Errorf("sampling period %q not one of 0.5, 1, 2, 5, 10, 20", s)
	}
	return d, nil
}

func isPeriod(d time.Duration) bool {
	for _, p := range Periods {
		if p == d {
			return true
		}
	}
	return false
}
