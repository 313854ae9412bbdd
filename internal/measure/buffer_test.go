// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import (
	"math"
	"testing"
	"time"

	"github.com/gotmc/keithley2000"
)

func TestFormatReading(t *testing.T) {
	testCases := []struct {
		given    float64
		expected string
	}{
		{0.00123, "0.00123"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{-4.2, "-4.2"},
		{1000, "1000.0"},
		{1234567, "1234567.0"},
		{0, "0.0"},
		{9.9e37, "9.9e+37"},
		{1e16, "1e+16"},
		{math.Inf(1), "inf"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := FormatReading(tc.given); got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestBufferOrder(t *testing.T) {
	var b Buffer
	if b.Len() != 0 || len(b.Entries()) != 0 {
		t.Fatal("new buffer must be empty")
	}
	b.Append(LabelEntry("Measurement: DCV Sampling Period: 1"))
	b.Append(ReadingEntry(0.5))
	b.Append(ReadingEntry(-1))
	got := b.Entries()
	expected := []string{"Measurement: DCV Sampling Period: 1", "0.5", "-1.0"}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i].String() != expected[i] {
			t.Errorf("entry %d: expected %q, got %q", i, expected[i], got[i].String())
		}
	}
	// Entries is a copy.
	got[0] = ReadingEntry(1)
	if !b.Entries()[0].IsLabel {
		t.Error("Entries must not alias the buffer")
	}
	if tail := b.Tail(2); len(tail) != 2 || tail[1].Value != -1 {
		t.Errorf("unexpected tail %v", tail)
	}
	if tail := b.Tail(10); len(tail) != 3 {
		t.Errorf("Expected whole buffer, got %d", len(tail))
	}
}

func TestConfig(t *testing.T) {
	testCases := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"defaults", DefaultConfig(), false},
		{"no period", Config{Address: 16, Function: keithley2000.DCV}, false},
		{"single shot needs no period", Config{Address: 16, Function: keithley2000.DCV, SingleShot: true}, true},
		{"odd period", Config{Address: 16, Function: keithley2000.DCI, Period: 3 * time.Second}, false},
		{"repeating", Config{Address: 16, Function: keithley2000.Resistance, Period: 500 * time.Millisecond}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.valid && err != nil {
				t.Errorf("unexpected error: %s", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected ErrInvalidConfig")
			}
		})
	}
	if DefaultConfig().Address != 16 {
		t.Error("default address must be 16")
	}
	cfg := Config{Function: keithley2000.DCV, Period: time.Second}
	if got := cfg.Label(); got != "Measurement: DCV Sampling Period: 1" {
		t.Errorf("unexpected label %q", got)
	}
	cfg = Config{Function: keithley2000.Resistance, Period: 500 * time.Millisecond}
	if got := cfg.Label(); got != "Measurement: R Sampling Period: 0.5" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestParsePeriod(t *testing.T) {
	for _, p := range Periods {
		d, err := ParsePeriod(FormatPeriod(p))
		if err != nil || d != p {
			t.Errorf("ParsePeriod(%s) = %v, %v", FormatPeriod(p), d, err)
		}
	}
	for _, s := range []string{"", "3", "0", "-1", "abc"} {
		if _, err := ParsePeriod(s); err == nil {
			t.Errorf("ParsePeriod(%q): expected error", s)
		}
	}
}
