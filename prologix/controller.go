// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package prologix drives a Prologix GPIB-USB or GPIB-ETHERNET controller (or
// an AR488 clone) as the GPIB controller-in-charge for a single instrument.
package prologix

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Controller models a GPIB controller-in-charge addressing one instrument.
type Controller struct {
	rw               io.ReadWriter
	r                *bufio.Reader
	primaryAddr      int
	hasSecondaryAddr bool
	secondaryAddr    int
	auto             bool
	usbTerm          byte
	eotChar          byte
	readTimeoutMs    int
	ar488            bool // compatibility with Arduino AR488 - see WithAR488 documentation for details.
	logger           *log.Logger
}

// ControllerOption applies an option to the controller.
type ControllerOption func(*Controller)

// NewController creates a GPIB controller-in-charge at the given address using
// the given Prologix transport, which can either be a Virtual COM Port (VCP)
// or an Ethernet socket. Enable clear to send the Selected Device Clear (SDC)
// message to the GPIB address. Optionally controller configuration can be
// included using a ControllerOption.
func NewController(
	rw io.ReadWriter,
	addr int,
	clear bool,
	opts ...ControllerOption,
) (*Controller, error) {
	c := Controller{
		rw:               rw,
		primaryAddr:      addr,
		hasSecondaryAddr: false,
		auto:             false,
		usbTerm:          '\n',
		eotChar:          '\n',
		readTimeoutMs:    500,
		logger:           log.Default(),
	}

	for _, opt := range opts {
		opt(&c)
	}
	c.r = bufio.NewReader(c.rw)

	if !IsPrimaryAddressValid(c.primaryAddr) {
		return nil, fmt.Errorf("invalid primary address %d (must by 0-30)", c.primaryAddr)
	}

	addrCmd := fmt.Sprintf("addr %d", c.primaryAddr)
	if c.hasSecondaryAddr {
		if !isSecondaryAddressValid(c.secondaryAddr) {
			return nil, fmt.Errorf("invalid secondary address %d (must be 96-126)", c.secondaryAddr)
		}
		addrCmd = fmt.Sprintf("addr %d %d", c.primaryAddr, c.secondaryAddr)
	}
	cmds := []string{}
	if !c.ar488 {
		cmds = append(cmds,
			"verbose 0", // turn off verbosity if on
			"savecfg 0", // Disable saving of configuration parameters in EPROM
		)
	}
	cmds = append(cmds,
		addrCmd,  // Set the primary address.
		"mode 1", // Switch to controller mode.
		"auto 0", // Turn off read-after-write and address instrument to listen.
		"eoi 1",  // Enable EOI assertion with last character.
		"eos 0",  // Set GPIB termination.
		fmt.Sprintf("read_tmo_ms %d", c.readTimeoutMs),
		fmt.Sprintf("eot_char %d", c.eotChar),
		"eot_enable 1", // Append character when EOI detected?
	)
	if clear {
		cmds = append(cmds, "clr")
	}
	for _, cmd := range cmds {
		if err := c.CommandController(cmd); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// WithSecondaryAddress sets a secondary address, which must be in the range of
// 96 and 126, inclusive.
func WithSecondaryAddress(addr int) ControllerOption {
	return func(c *Controller) {
		c.hasSecondaryAddr = true
		c.secondaryAddr = addr
	}
}

// WithReadTimeout sets the controller's GPIB read timeout in milliseconds.
func WithReadTimeout(ms int) ControllerOption {
	return func(c *Controller) { c.readTimeoutMs = ms }
}

// WithLogger routes controller traffic logging to l.
func WithLogger(l *log.Logger) ControllerOption { return func(c *Controller) { c.logger = l } }

// WithAR488 slightly alters the init commands, for compatiblity with the
// Arduino-based AR488. Specifically, we do not emit 'verbose 0', nor do
// we toggle savecfg.
func WithAR488() ControllerOption { return func(c *Controller) { c.ar488 = true } }

// Address returns the instrument's primary GPIB address.
func (c *Controller) Address() int { return c.primaryAddr }

// Command formats according to a format specifier if provided and sends a
// SCPI/ASCII command to the instrument at the currently assigned GPIB address.
// All leading and trailing whitespace is removed before appending the USB
// terminator to the command sent to the Prologix.
func (c *Controller) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	cmd = fmt.Sprintf("%s%c", strings.TrimSpace(cmd), c.usbTerm)
	c.logger.Debug("gpib command", "addr", c.primaryAddr, "cmd", cmd)
	_, err := fmt.Fprint(c.rw, cmd)
	return err
}

// Query queries the instrument at the currently assigned GPIB using the given
// SCPI/ASCII command. The cmd string does not need to include a new line
// character, since all leading and trailing whitespace is removed before
// appending the USB terminator to the command sent to the Prologix.
func (c *Controller) Query(cmd string) (string, error) {
	cmd = fmt.Sprintf("%s%c", strings.TrimSpace(cmd), c.usbTerm)
	c.logger.Debug("gpib query", "addr", c.primaryAddr, "cmd", cmd)
	_, err := fmt.Fprint(c.rw, cmd)
	if err != nil {
		return "", fmt.Errorf("error writing command: %s", err)
	}
	// If read-after-write is disabled, need to tell the Prologix controller to
	// read.
	if !c.auto {
		readCmd := "++read eoi"
		_, err = fmt.Fprintf(c.rw, "%s%c", readCmd, c.usbTerm)
		if err != nil {
			return "", fmt.Errorf("error sending `%s` command: %s", readCmd, err)
		}
	}
	s, err := c.r.ReadString(c.eotChar)
	if err == io.EOF && len(s) > 0 {
		return s, nil
	}
	return s, err
}

// QueryController sends the given command to the Prologix controller and
// returns its response as a string.
func (c *Controller) QueryController(cmd string) (string, error) {
	err := c.CommandController(cmd)
	if err != nil {
		return "", err
	}
	s, err := c.r.ReadString(c.eotChar)
	c.logger.Debug("controller read", "data", s)
	return s, err
}

// CommandController sends the given command to the Prologix controller. To
// indicate this is a command for the Prologix controller, thereby not
// transmitting to the instrument over GPIB, two plus signs `++` are prepended.
// Addtionally, a new line is appended to act as the USB termination character.
func (c *Controller) CommandController(cmd string) error {
	cmd = fmt.Sprintf("++%s%c", strings.ToLower(strings.TrimSpace(cmd)), c.usbTerm)
	c.logger.Debug("controller command", "cmd", cmd)
	_, err := c.rw.Write([]byte(cmd))
	return err
}

// Version returns the controller firmware version string.
func (c *Controller) Version() (string, error) {
	s, err := c.QueryController("ver")
	return strings.TrimSpace(s), err
}

// ClearDevice sends the Selected Device Clear (SDC) message to the instrument.
func (c *Controller) ClearDevice() error {
	return c.CommandController("clr")
}

// FrontPanel returns the instrument to local (front panel) control when local
// is true, otherwise it locks out the front panel.
func (c *Controller) FrontPanel(local bool) error {
	if local {
		return c.CommandController("loc")
	}
	return c.CommandController("llo")
}

// Close hands the instrument back to its front panel. The underlying
// transport is shared between addresses and is left open.
func (c *Controller) Close() error {
	return c.FrontPanel(true)
}

// IsPrimaryAddressValid checks that the primary GPIB address is between 0 and
// 30, inclusive.
func IsPrimaryAddressValid(addr int) bool {
	if addr < 0 || addr > 30 {
		return false
	}
	return true
}

// isSecondaryAddressValid checks that the secondary GPIB address is between 96
// and 126, inclusive.
func isSecondaryAddressValid(addr int) bool {
	if addr < 96 || addr > 126 {
		return false
	}
	return true
}
