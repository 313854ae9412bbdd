// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package connutil opens the transport to the GPIB adapter from command line
// flags and hands out per-address sessions on it.
package connutil

import (
	"flag"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gotmc/keithley2000"
	"github.com/gotmc/keithley2000/lib/cmdlog"
	"github.com/gotmc/keithley2000/lib/find"
	"github.com/gotmc/keithley2000/prologix"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// EthernetPort is the TCP port of a Prologix GPIB-ETHERNET controller.
const EthernetPort = "1234"

type Conn struct {
	SerialPort string
	Baud       int
	TCPAddr    string // host[:port] of a GPIB-ETHERNET adapter; overrides SerialPort
	Timeout    time.Duration
	AR488      bool
	Debug      bool
	Simulate   bool

	tty     string
	finderr error
}

// AddFlags is to be called before [flag.Parse].
func (c *Conn) AddFlags() {
	c.tty, c.finderr = find.Find(find.AdapterFilter)
	if c.finderr != nil {
		c.tty = "ttyUSB0"
	}
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.Timeout == 0 {
		c.Timeout = 3 * time.Second
	}

	flag.StringVar(&c.SerialPort, "port", "/dev/"+c.tty, "Serial port for Prologix VCP GPIB controller")
	flag.IntVar(&c.Baud, "baud", c.Baud, "serial baud rate (AR488 adapters care, Prologix ignores it)")
	flag.StringVar(&c.TCPAddr, "tcp", "", "host[:port] of a Prologix GPIB-ETHERNET controller (instead of -port)")
	flag.DurationVar(&c.Timeout, "timeout", c.Timeout, "GPIB read timeout")
	flag.BoolVar(&c.AR488, "ar488", c.AR488, "adapter is an Arduino AR488")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "log every GPIB command and response")
	flag.BoolVar(&c.Simulate, "sim", c.Simulate, "use a simulated meter at GPIB address 16 instead of hardware")
}

// Setup is to be called after [flag.Parse]. It opens the transport and
// returns a Dialer creating a controller session per GPIB address on it, and
// a cleanup func closing the transport.
func (c *Conn) Setup(logger *log.Logger) (keithley2000.Dialer, func() error, error) {
	nocleanup := func() error { return nil }

	if c.Simulate {
		logger.Info("using simulated meters")
		return simulatedBus(), nocleanup, nil
	}

	rw, closer, err := c.open(logger)
	if err != nil {
		return nil, nocleanup, err
	}

	opts := []prologix.ControllerOption{
		prologix.WithLogger(logger),
		prologix.WithReadTimeout(int(c.Timeout / time.Millisecond)),
	}
	if c.AR488 {
		opts = append(opts, prologix.WithAR488())
	}
	dialer := keithley2000.DialerFunc(func(addr int) (keithley2000.Session, error) {
		gpib, err := prologix.NewController(rw, addr, true, opts...)
		if err != nil {
			return nil, err
		}
		if c.Debug {
			return cmdlog.Wrap(gpib, logger), nil
		}
		return gpib, nil
	})

	cleanup := func() error {
		logger.Info("closing GPIB transport")
		return closer()
	}
	return dialer, cleanup, nil
}

func (c *Conn) open(logger *log.Logger) (io.ReadWriter, func() error, error) {
	if c.TCPAddr != "" {
		addr := c.TCPAddr
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, EthernetPort)
		}
		logger.Info("dialing GPIB-ETHERNET", "addr", addr)
		conn, err := net.DialTimeout("tcp", addr, c.Timeout)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "dial %s", addr)
		}
		return &deadlineConn{Conn: conn, timeout: c.Timeout}, conn.Close, nil
	}

	if c.finderr != nil && c.SerialPort == "/dev/"+c.tty {
		// only print this if the port isn't overridden via flag
		logger.Warn("locating serial port failed, guessing", "port", c.SerialPort, "err", c.finderr)
	}
	logger.Info("opening serial port", "port", c.SerialPort, "baud", c.Baud)
	port, err := serial.Open(c.SerialPort, &serial.Mode{BaudRate: c.Baud})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open serial port %s", c.SerialPort)
	}
	// Leave headroom over the adapter's own GPIB timeout so it gets to
	// report first.
	if err := port.SetReadTimeout(c.Timeout + time.Second); err != nil {
		return nil, nil, multierr.Append(errors.Wrap(err, "set read timeout"), port.Close())
	}
	closer := func() error {
		// Discard any unread data on the serial port and then close.
		return multierr.Append(port.ResetInputBuffer(), port.Close())
	}
	return &timeoutReader{Port: port}, closer, nil
}

// timeoutReader turns go.bug.st/serial's (0, nil) read timeout into an error
// so a silent instrument does not look like an endless empty stream.
type timeoutReader struct {
	serial.Port
}

var errReadTimeout = errors.New("serial read timeout")

func (r *timeoutReader) Read(p []byte) (int, error) {
	n, err := r.Port.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, errReadTimeout
	}
	return n, err
}

// deadlineConn bounds every read on a TCP adapter by timeout.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout + time.Second)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

// SimulatedAddress is where -sim attaches its meter.
const SimulatedAddress = 16

func simulatedBus() *keithley2000.SimBus {
	m := keithley2000.NewSimulator()
	m.SetReading(keithley2000.DCV, 1.2345)
	m.SetReading(keithley2000.DCI, 0.0021)
	m.SetReading(keithley2000.Resistance, 1000)
	m.SetNoise(0.0005)
	bus := keithley2000.NewSimBus()
	bus.Attach(SimulatedAddress, m)
	return bus
}
