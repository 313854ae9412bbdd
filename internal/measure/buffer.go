// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// Entry is one line of the reading buffer: either a run label or a reading.
type Entry struct {
	Label   string
	Value   float64
	IsLabel bool
}

// LabelEntry returns an entry holding a run label.
func LabelEntry(s string) Entry { return Entry{Label: s, IsLabel: true} }

// ReadingEntry returns an entry holding a numeric reading.
func ReadingEntry(v float64) Entry { return Entry{Value: v} }

// String is the entry as displayed and exported.
func (e Entry) String() string {
	if e.IsLabel {
		return e.Label
	}
	return FormatReading(e.Value)
}

// FormatReading renders a reading with the shortest exact digits: plain
// decimal notation with at least one fractional digit for magnitudes in
// [1e-4, 1e16), exponent notation otherwise (0.00123, 1000.0, 1e-05, 9.9e+37).
func FormatReading(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	_, exp, _ := strings.Cut(s, "e")
	e, _ := strconv.Atoi(exp)
	if e < -4 || e >= 16 {
		return s
	}
	s = strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Buffer is the append-only record of a session's runs. It is never cleared.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
}

// Append adds e to the end of the buffer.
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Entries returns a copy of the entries in insertion order.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Entry(nil), b.entries...)
}

// Tail returns a copy of the last n entries (all of them if n exceeds Len).
func (b *Buffer) Tail(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > len(b.entries) {
		n = len(b.entries)
	}
	return append([]Entry(nil), b.entries[len(b.entries)-n:]...)
}
