// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Command k2000 is a terminal front panel for a Keithley 2000 multimeter on
// a Prologix (or AR488) GPIB adapter.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gotmc/keithley2000"
	"github.com/gotmc/keithley2000/internal/measure"
	"github.com/gotmc/keithley2000/internal/tui"
	"github.com/gotmc/keithley2000/lib/connutil"
	"go.uber.org/multierr"
)

type options struct {
	conn        connutil.Conn
	logPath     string
	logLevel    string
	stopOnError bool
}

func main() {
	var o options
	o.conn.AddFlags()
	flag.StringVar(&o.logPath, "log", "k2000.log", "log file; the terminal belongs to the UI")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flag.BoolVar(&o.stopOnError, "stop-on-error", false, "stop a repeating measurement at its first failed reading")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "k2000:", err)
		os.Exit(1)
	}
}

func run(o options) (err error) {
	f, err := os.OpenFile(o.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Prefix:          "k2000",
	})
	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	if o.conn.Debug {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	log.SetDefault(logger)

	dialer, cleanup, err := o.conn.Setup(logger)
	if err != nil {
		return err
	}
	link := keithley2000.NewLink(dialer, logger)
	defer func() {
		err = multierr.Combine(err, link.Close(), cleanup())
	}()

	var popts []measure.Option
	if o.stopOnError {
		popts = append(popts, measure.WithStopOnError())
	}
	st := measure.NewStation(link, logger, popts...)

	p := tea.NewProgram(tui.NewApp(st), tea.WithAltScreen())

	done := make(chan struct{})
	defer close(done)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			logger.Info("signal received, quitting", "signal", s)
			p.Quit()
		case <-done:
		}
	}()

	logger.Info("starting front panel")
	_, err = p.Run()
	st.Stop()
	logger.Info("front panel closed", "entries", st.Buffer.Len())
	return err
}
