// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// DefaultExtension is added to export paths given without one.
const DefaultExtension = ".txt"

// Export errors.
var (
	// ErrIO reports an export path that could not be written.
	ErrIO = errors.New("i/o error")

	// ErrExists is returned when the export target exists and overwriting
	// was not confirmed.
	ErrExists = errors.New("file already exists")
)

// ExportPath normalizes an operator-entered path, adding DefaultExtension
// when the name has none.
func ExportPath(path string) string {
	if path == "" {
		return path
	}
	if filepath.Ext(path) == "" {
		return path + DefaultExtension
	}
	return path
}

// Export writes entries to path, one String() per line, each newline
// terminated. An existing file is only replaced when overwrite is set.
func Export(path string, entries []Entry, overwrite bool) (err error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %w", ErrIO, cerr))
		}
	}()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	return nil
}
