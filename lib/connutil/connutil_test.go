// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package connutil

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"
)

func TestSetupSimulated(t *testing.T) {
	c := Conn{Simulate: true}
	dialer, cleanup, err := c.Setup(log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	sess, err := dialer.Dial(SimulatedAddress)
	if err != nil {
		t.Fatal(err)
	}
	idn, err := sess.Query("*IDN?")
	if err != nil || !strings.Contains(idn, "MODEL 2000") {
		t.Errorf("unexpected idn %q, %v", idn, err)
	}
	if _, err := dialer.Dial(3); err == nil {
		t.Error("Expected no meter at address 3")
	}
}

func TestSetupTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- ""
			return
		}
		defer conn.Close()
		var buf bytes.Buffer
		io.Copy(&buf, conn)
		received <- buf.String()
	}()

	c := Conn{TCPAddr: ln.Addr().String(), Timeout: time.Second}
	dialer, cleanup, err := c.Setup(log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	sess, err := dialer.Dial(16)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Command("*RST"); err != nil {
		t.Fatal(err)
	}
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}
	got := <-received
	for _, want := range []string{"++addr 16\n", "++read_tmo_ms 1000\n", "++clr\n", "*RST\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("adapter did not receive %q in %q", want, got)
		}
	}
}

func TestSetupTCPUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	c := Conn{TCPAddr: addr, Timeout: 100 * time.Millisecond}
	if _, _, err := c.Setup(log.New(io.Discard)); err == nil {
		t.Error("Expected dial error")
	}
}

type silentPort struct {
	serial.Port
}

func (silentPort) Read(p []byte) (int, error) { return 0, nil }

func TestTimeoutReader(t *testing.T) {
	r := &timeoutReader{Port: silentPort{}}
	_, err := r.Read(make([]byte, 8))
	if !errors.Is(err, errReadTimeout) {
		t.Errorf("Expected errReadTimeout, got %v", err)
	}
}

func TestDeadlineConn(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	c := &deadlineConn{Conn: a, timeout: 10 * time.Millisecond}
	start := time.Now()
	_, err := c.Read(make([]byte, 8))
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Errorf("Expected timeout error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("read was not bounded by the deadline")
	}
}
