// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package keithley2000

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	. "github.com/smartystreets/goconvey/convey"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestLinkIdentifyEveryAddress(t *testing.T) {
	for addr := 1; addr <= 30; addr++ {
		t.Run(fmt.Sprintf("GPIB::%d", addr), func(t *testing.T) {
			bus := NewSimBus()
			meter := NewSimulator()
			bus.Attach(addr, meter)
			link := NewLink(bus, quietLogger())
			if err := link.Connect(addr); err != nil {
				t.Fatal(err)
			}
			idn, err := link.Identify()
			if err != nil {
				t.Fatal(err)
			}
			if idn == "" {
				t.Error("empty identification")
			}
			sent := meter.Sent()
			if len(sent) != 2 || sent[0] != ResetCommand || sent[1] != "*IDN?" {
				t.Errorf("unexpected traffic %q", sent)
			}
		})
	}
}

func TestLink(t *testing.T) {
	Convey("Given a bus with a meter at address 16", t, func() {
		bus := NewSimBus()
		meter := NewSimulator()
		meter.SetReading(DCV, 0.00123)
		meter.SetReading(Resistance, 1000.5)
		bus.Attach(16, meter)
		link := NewLink(bus, quietLogger())

		Convey("Measuring before connecting fails with ErrNoSession", func() {
			_, err := link.Measure(DCV.Query())
			So(errors.Is(err, ErrNoSession), ShouldBeTrue)
			So(errors.Is(err, ErrQuery), ShouldBeTrue)
			_, err = link.Identify()
			So(errors.Is(err, ErrNoSession), ShouldBeTrue)
		})

		Convey("Connecting to an empty address fails with ErrConnection", func() {
			err := link.Connect(5)
			So(errors.Is(err, ErrConnection), ShouldBeTrue)
			_, ok := link.Connected()
			So(ok, ShouldBeFalse)
		})

		Convey("Connecting to an out of range address fails without dialing", func() {
			So(errors.Is(link.Connect(0), ErrConnection), ShouldBeTrue)
			So(errors.Is(link.Connect(31), ErrConnection), ShouldBeTrue)
			So(meter.Sent(), ShouldBeEmpty)
		})

		Convey("Once connected", func() {
			So(link.Connect(16), ShouldBeNil)
			addr, ok := link.Connected()
			So(ok, ShouldBeTrue)
			So(addr, ShouldEqual, 16)

			Convey("Measure returns the parsed reading", func() {
				v, err := link.Measure(DCV.Query())
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0.00123)
				v, err = link.Measure(Resistance.Query())
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1000.5)
				So(meter.Sent(), ShouldResemble,
					[]string{ResetCommand, ":measure:voltage:dc?", ":measure:resistance?"})
			})

			Convey("A timeout surfaces as ErrQuery and keeps the session", func() {
				meter.Fail(nil)
				_, err := link.Measure(DCV.Query())
				So(errors.Is(err, ErrQuery), ShouldBeTrue)
				_, ok := link.Connected()
				So(ok, ShouldBeTrue)
			})

			Convey("Reconnecting elsewhere closes the old session", func() {
				other := NewSimulator()
				bus.Attach(22, other)
				So(link.Connect(22), ShouldBeNil)
				So(meter.Closed(), ShouldBeTrue)
				addr, _ := link.Connected()
				So(addr, ShouldEqual, 22)
			})

			Convey("A failed reconnect still discards the old session", func() {
				So(errors.Is(link.Connect(9), ErrConnection), ShouldBeTrue)
				So(meter.Closed(), ShouldBeTrue)
				_, err := link.Measure(DCV.Query())
				So(errors.Is(err, ErrNoSession), ShouldBeTrue)
			})

			Convey("Close forgets the session and is idempotent", func() {
				So(link.Close(), ShouldBeNil)
				So(link.Close(), ShouldBeNil)
				_, ok := link.Connected()
				So(ok, ShouldBeFalse)
			})
		})
	})
}
