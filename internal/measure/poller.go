// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package measure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gotmc/keithley2000"
)

// Tick outcomes that are not instrument failures.
var (
	// ErrStale means the tick belongs to a run that was stopped or replaced.
	// The caller should stop scheduling ticks for it.
	ErrStale = errors.New("tick for inactive run")

	// ErrBusy means the previous tick's query has not returned yet; the tick
	// was skipped.
	ErrBusy = errors.New("previous measurement still in flight")
)

// State of the poller.
type State int

// Poller states.
const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "Running"
	}
	return "Idle"
}

// Instrument takes one reading for a measurement query.
// *keithley2000.Link satisfies it.
type Instrument interface {
	Measure(query string) (float64, error)
}

// Run identifies one armed repeating measurement. Function and Period are
// captured when the run starts and do not follow later setting changes.
type Run struct {
	Gen      uint64
	Function keithley2000.Function
	Period   time.Duration
}

// Option configures a Poller.
type Option func(*Poller)

// WithStopOnError disarms a run on its first failed tick. By default a
// failing run keeps ticking and retries every period.
func WithStopOnError() Option { return func(p *Poller) { p.stopOnError = true } }

// WithLogger sets the poller's logger.
func WithLogger(l *log.Logger) Option { return func(p *Poller) { p.logger = l } }

// Poller is the start/stop state machine driving measurements. It does not
// own a timer: Start returns the Run to schedule and the caller delivers
// Tick(run.Gen) once per period, from a UI tick or from Loop. Bumping the
// generation on every start and stop guarantees that at most one run is
// ever live, however many stale ticks are still queued.
type Poller struct {
	inst        Instrument
	buf         *Buffer
	disp        Display
	stopOnError bool
	logger      *log.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	run      Run
	inFlight bool
}

// NewPoller returns an idle Poller.
func NewPoller(inst Instrument, buf *Buffer, disp Display, opts ...Option) *Poller {
	p := &Poller{inst: inst, buf: buf, disp: disp, logger: log.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns Idle or Running.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the live run, if any.
func (p *Poller) Current() (Run, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run, p.state == Running
}

// Start acts on the operator's START. A single-shot config takes one reading
// now and shows it, leaving the state and the buffer alone. Otherwise the
// run label is appended, any previous run is disarmed, and the new Run is
// returned with the poller Running. Failures show ErrorText.
func (p *Poller) Start(cfg Config) (Run, error) {
	if err := cfg.Validate(); err != nil {
		p.disp.Show(ErrorText)
		return Run{}, err
	}

	if cfg.SingleShot {
		v, err := p.inst.Measure(cfg.Function.Query())
		if err != nil {
			p.logger.Error("single measurement", "function", cfg.Function, "err", err)
			p.disp.Show(ErrorText)
			return Run{}, err
		}
		p.disp.Show(FormatReading(v))
		return Run{}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf.Append(LabelEntry(cfg.Label()))
	p.gen++
	p.run = Run{Gen: p.gen, Function: cfg.Function, Period: cfg.Period}
	p.state = Running
	p.inFlight = false
	p.logger.Info("run armed", "gen", p.run.Gen, "function", cfg.Function, "period", cfg.Period)
	return p.run, nil
}

// Tick takes the reading for one period of run gen, shows it and appends it
// to the buffer. The query runs without holding the poller lock, so Stop
// never waits on the instrument; a reading that returns after its run was
// stopped is dropped.
func (p *Poller) Tick(gen uint64) error {
	p.mu.Lock()
	if p.state != Running || p.run.Gen != gen {
		p.mu.Unlock()
		return ErrStale
	}
	if p.inFlight {
		p.mu.Unlock()
		p.logger.Warn("tick skipped", "gen", gen, "err", ErrBusy)
		return ErrBusy
	}
	p.inFlight = true
	q := p.run.Function.Query()
	p.mu.Unlock()

	v, err := p.inst.Measure(q)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Running || p.run.Gen != gen {
		return ErrStale
	}
	p.inFlight = false
	if err != nil {
		p.logger.Error("tick measurement", "gen", gen, "err", err)
		p.disp.Show(ErrorText)
		if p.stopOnError {
			p.disarm()
		}
		return err
	}
	p.disp.Show(FormatReading(v))
	p.buf.Append(ReadingEntry(v))
	return nil
}

// Stop disarms the live run. It reports whether there was one; stopping an
// idle poller does nothing.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Running {
		return false
	}
	p.disarm()
	return true
}

func (p *Poller) disarm() {
	p.logger.Info("run disarmed", "gen", p.run.Gen)
	p.gen++
	p.state = Idle
	p.run = Run{}
	p.inFlight = false
}

// Loop clocks run with its own ticker until ctx is done or the run is
// disarmed. Tick failures are logged and the loop carries on.
func (p *Poller) Loop(ctx context.Context, run Run) error {
	t := time.NewTicker(run.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			err := p.Tick(run.Gen)
			if errors.Is(err, ErrStale) {
				return nil
			}
		}
	}
}
