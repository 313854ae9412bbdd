// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package keithley2000

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gotmc/query"
)

// Session is an open line to one instrument. *prologix.Controller satisfies
// it, as does Simulator.
type Session interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
	Close() error
}

// Dialer opens a Session to the instrument at a GPIB primary address.
type Dialer interface {
	Dial(addr int) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(addr int) (Session, error)

// Dial calls f(addr).
func (f DialerFunc) Dial(addr int) (Session, error) { return f(addr) }

// Link owns the single instrument session of the program. At most one
// session is open at a time; connecting again replaces it. All methods are
// safe for concurrent use and are serialized, so only one GPIB transaction is
// ever outstanding.
type Link struct {
	mu     sync.Mutex
	dialer Dialer
	sess   Session
	addr   int
	logger *log.Logger
}

// NewLink returns a Link with no open session.
func NewLink(d Dialer, logger *log.Logger) *Link {
	if logger == nil {
		logger = log.Default()
	}
	return &Link{dialer: d, logger: logger}
}

// Connect opens a session to the meter at addr and resets it. Any previous
// session is closed first, whether or not the new one succeeds.
func (l *Link) Connect(addr int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discard()

	if !IsAddressValid(addr) {
		return fmt.Errorf("%w: invalid GPIB address %d (must be 1-30)", ErrConnection, addr)
	}
	sess, err := l.dialer.Dial(addr)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrConnection, Resource(addr), err)
	}
	if err := sess.Command(ResetCommand); err != nil {
		if cerr := sess.Close(); cerr != nil {
			l.logger.Warn("closing failed session", "resource", Resource(addr), "err", cerr)
		}
		return fmt.Errorf("%w: reset %s: %w", ErrConnection, Resource(addr), err)
	}
	l.sess, l.addr = sess, addr
	l.logger.Info("connected", "resource", Resource(addr))
	return nil
}

// Identify returns the meter's *IDN? response.
func (l *Link) Identify() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil {
		return "", ErrNoSession
	}
	idn, err := query.String(l.sess, "*IDN?")
	if err != nil {
		return "", fmt.Errorf("%w: *IDN?: %w", ErrQuery, err)
	}
	idn = strings.TrimSpace(idn)
	if idn == "" {
		return "", fmt.Errorf("%w: empty *IDN? response", ErrQuery)
	}
	return idn, nil
}

// Measure sends a measurement query such as DCV.Query() and returns the
// first numeric value of the response.
func (l *Link) Measure(q string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil {
		return 0, ErrNoSession
	}
	resp, err := query.String(l.sess, q)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrQuery, q, err)
	}
	return parseReading(resp)
}

// Connected reports the address of the open session, if any.
func (l *Link) Connected() (addr int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr, l.sess != nil
}

// Close returns the meter to front panel control and forgets the session.
// Closing a Link without a session is a no-op.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.discard()
}

func (l *Link) discard() error {
	if l.sess == nil {
		return nil
	}
	err := l.sess.Close()
	if err != nil {
		l.logger.Warn("closing session", "resource", Resource(l.addr), "err", err)
	}
	l.sess, l.addr = nil, 0
	return err
}
