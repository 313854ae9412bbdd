// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package keithley2000

import (
	"errors"
	"fmt"
)

// Error kinds returned by Link. Test with errors.Is.
var (
	// ErrConnection reports a bad or unreachable GPIB address, or a failure of
	// the transport below it.
	ErrConnection = errors.New("connection error")

	// ErrQuery reports a timeout, a malformed response, or a query issued
	// without an open session.
	ErrQuery = errors.New("query error")

	// ErrNoSession is an ErrQuery raised before anything is sent.
	ErrNoSession = fmt.Errorf("%w: no instrument session open", ErrQuery)
)
