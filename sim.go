// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package keithley2000

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// ErrTimeout is what a Simulator returns while a failure is injected with
// Fail and no specific error was given.
var ErrTimeout = errors.New("read timeout")

// SimulatedIDN is the identification string a Simulator answers with.
const SimulatedIDN = "KEITHLEY INSTRUMENTS INC.,MODEL 2000,0000000,A19  /A02"

// Simulator is an in-memory Keithley 2000 that answers the queries this
// package sends. It records every message it receives.
type Simulator struct {
	mu       sync.Mutex
	idn      string
	readings map[string]float64
	noise    float64
	fail     error
	sent     []string
	closed   bool
}

// NewSimulator returns a meter reading 0 for every function.
func NewSimulator() *Simulator {
	s := &Simulator{idn: SimulatedIDN, readings: make(map[string]float64)}
	for _, f := range Functions() {
		s.readings[f.Query()] = 0
	}
	return s
}

// SetReading sets the value returned for f.
func (s *Simulator) SetReading(f Function, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[f.Query()] = v
}

// SetNoise adds uniform noise of ±amplitude to every reading.
func (s *Simulator) SetNoise(amplitude float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noise = amplitude
}

// Fail makes every following Query return err (ErrTimeout if err is nil).
// Clear it with Heal.
func (s *Simulator) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrTimeout
	}
	s.fail = err
}

// Heal clears an injected failure.
func (s *Simulator) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = nil
}

// Sent returns the commands and queries received so far.
func (s *Simulator) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// Closed reports whether Close was called.
func (s *Simulator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Command implements Session.
func (s *Simulator) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, strings.TrimSpace(cmd))
	return nil
}

// Query implements Session.
func (s *Simulator) Query(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd = strings.TrimSpace(cmd)
	s.sent = append(s.sent, cmd)
	if s.fail != nil {
		return "", s.fail
	}
	if strings.EqualFold(cmd, "*IDN?") {
		return s.idn + "\n", nil
	}
	v, ok := s.readings[strings.ToLower(cmd)]
	if !ok {
		// The meter stays silent on a command it does not understand.
		return "", ErrTimeout
	}
	if s.noise != 0 {
		v += s.noise * (2*rand.Float64() - 1)
	}
	return fmt.Sprintf("%+.8E\n", v), nil
}

// Close implements Session.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SimBus is a Dialer with simulated meters attached at some addresses.
// Dialing an empty address fails like an unanswered GPIB address.
type SimBus struct {
	mu     sync.Mutex
	meters map[int]*Simulator
}

// NewSimBus returns a bus with nothing attached.
func NewSimBus() *SimBus {
	return &SimBus{meters: make(map[int]*Simulator)}
}

// Attach places m at addr.
func (b *SimBus) Attach(addr int, m *Simulator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meters[addr] = m
}

// Dial implements Dialer.
func (b *SimBus) Dial(addr int) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.meters[addr]
	if !ok {
		return nil, fmt.Errorf("no listener at GPIB address %d", addr)
	}
	m.mu.Lock()
	m.closed = false
	m.mu.Unlock()
	return m, nil
}
