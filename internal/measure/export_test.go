// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExportPath(t *testing.T) {
	testCases := []struct {
		given, expected string
	}{
		{"data", "data.txt"},
		{"data.txt", "data.txt"},
		{"data.csv", "data.csv"},
		{"dir/run", "dir/run.txt"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := ExportPath(tc.given); got != tc.expected {
			t.Errorf("ExportPath(%q): expected %q, got %q", tc.given, tc.expected, got)
		}
	}
}

func TestExportEmptyBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := Export(path, nil, false); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 0 {
		t.Errorf("Expected empty file, got %d bytes", fi.Size())
	}
}

func TestExportLines(t *testing.T) {
	entries := []Entry{
		LabelEntry("Measurement: R Sampling Period: 0.5"),
		ReadingEntry(1000.25),
		ReadingEntry(1e-05),
	}
	path := filepath.Join(t.TempDir(), "r.txt")
	if err := Export(path, entries, false); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	expected := "Measurement: R Sampling Period: 0.5\n1000.25\n1e-05\n"
	if string(b) != expected {
		t.Errorf("Expected %q, got %q", expected, b)
	}
}

func TestExportOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.txt")
	if err := os.WriteFile(path, []byte("previous contents\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Export(path, []Entry{ReadingEntry(1)}, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("Expected ErrExists, got %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "previous contents\n" {
		t.Errorf("file changed without confirmation: %q", b)
	}
	if err := Export(path, []Entry{ReadingEntry(1)}, true); err != nil {
		t.Fatal(err)
	}
	b, _ = os.ReadFile(path)
	if string(b) != "1.0\n" {
		t.Errorf("Expected overwritten file, got %q", b)
	}
}

func TestExportUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "out.txt")
	err := Export(path, []Entry{ReadingEntry(1)}, false)
	if !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}
