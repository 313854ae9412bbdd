// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import (
	"github.com/charmbracelet/log"
	"github.com/gotmc/keithley2000"
)

// Station is the application state shared by every operator action: the one
// instrument link, the reading buffer, the readout and the poller. Front ends
// hold a Station and call its methods; nothing reaches state any other way.
type Station struct {
	Link    *keithley2000.Link
	Buffer  *Buffer
	Readout *Readout
	Poller  *Poller
	logger  *log.Logger
}

// NewStation wires a fresh station around link: empty buffer, prompt on the
// readout, idle poller.
func NewStation(link *keithley2000.Link, logger *log.Logger, opts ...Option) *Station {
	if logger == nil {
		logger = log.Default()
	}
	s := &Station{
		Link:    link,
		Buffer:  &Buffer{},
		Readout: NewReadout(),
		logger:  logger,
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	s.Poller = NewPoller(link, s.Buffer, s.Readout, opts...)
	return s
}

// Identify connects to the meter at addr, resets it and shows its *IDN?
// response. On any failure the readout asks the operator to check the
// address and no session is left open.
func (s *Station) Identify(addr int) (string, error) {
	err := s.Link.Connect(addr)
	var idn string
	if err == nil {
		idn, err = s.Link.Identify()
	}
	if err != nil {
		s.logger.Error("identify", "resource", keithley2000.Resource(addr), "err", err)
		s.Link.Close()
		s.Readout.Show(AddressErrorText)
		return "", err
	}
	s.logger.Info("identified", "resource", keithley2000.Resource(addr), "idn", idn)
	s.Readout.Show(idn)
	return idn, nil
}

// Start is the operator's START; see Poller.Start.
func (s *Station) Start(cfg Config) (Run, error) { return s.Poller.Start(cfg) }

// Stop is the operator's STOP; see Poller.Stop.
func (s *Station) Stop() bool { return s.Poller.Stop() }

// Export writes the whole buffer to path (normalized by ExportPath) and
// returns the path written and the number of lines.
func (s *Station) Export(path string, overwrite bool) (string, int, error) {
	path = ExportPath(path)
	entries := s.Buffer.Entries()
	if err := Export(path, entries, overwrite); err != nil {
		s.logger.Error("export", "path", path, "err", err)
		return path, 0, err
	}
	s.logger.Info("exported", "path", path, "lines", len(entries))
	return path, len(entries), nil
}
