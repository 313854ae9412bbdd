// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package tui is the terminal front panel of the meter: readout, settings,
// START/STOP/*IDN? controls, the reading buffer and export.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gotmc/keithley2000"
	"github.com/gotmc/keithley2000/internal/measure"
)

// DefaultExportName is suggested when the output prompt opens.
const DefaultExportName = "readings.txt"

type field int

const (
	fieldAddress field = iota
	fieldFunction
	fieldPeriod
	fieldSingleShot
	fieldCount
)

// Messages produced by commands.
type (
	tickMsg     struct{ gen uint64 }
	tickDoneMsg struct {
		gen uint64
		err error
	}
	identifyMsg struct {
		idn string
		err error
	}
	singleShotMsg struct{ err error }
	exportMsg     struct {
		path string
		n    int
		err  error
	}
)

// App is the Bubble Tea model of the front panel. Instrument I/O runs in
// commands; the repeating run is clocked by tickMsg, and a tick whose run is
// no longer current is dropped without rescheduling.
type App struct {
	st  *measure.Station
	cfg measure.Config

	focus    field
	keys     KeyMap
	help     help.Model
	readings viewport.Model
	prompt   textinput.Model

	prompting  bool
	confirming bool
	pending    string // path awaiting overwrite confirmation
	busy       bool   // *IDN? or single shot in progress
	status     string
	statusErr  bool

	width, height int

	// schedule returns the command delivering the next tick of run.
	schedule func(run measure.Run) tea.Cmd
}

// NewApp returns the front panel for st with the startup settings.
func NewApp(st *measure.Station) App {
	ti := textinput.New()
	ti.Prompt = "Save readings to: "
	ti.CharLimit = 256
	ti.Cursor.SetMode(cursor.CursorStatic)

	vp := viewport.New(60, 10)

	return App{
		st:       st,
		cfg:      measure.DefaultConfig(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		readings: vp,
		prompt:   ti,
		schedule: tickAfter,
	}
}

func tickAfter(run measure.Run) tea.Cmd {
	return tea.Tick(run.Period, func(time.Time) tea.Msg {
		return tickMsg{gen: run.Gen}
	})
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.help.Width = msg.Width
		a.readings.Width = max(msg.Width-4, 20)
		a.readings.Height = max(msg.Height-18, 3)
		a.refreshReadings()
		return a, nil

	case tickMsg:
		run, ok := a.st.Poller.Current()
		if !ok || run.Gen != msg.gen {
			return a, nil
		}
		return a, tea.Batch(a.schedule(run), a.measure(run.Gen))

	case tickDoneMsg:
		switch {
		case msg.err == nil:
			a.setStatus("", false)
		case errors.Is(msg.err, measure.ErrStale), errors.Is(msg.err, measure.ErrBusy):
		default:
			a.setStatus(msg.err.Error(), true)
		}
		a.refreshReadings()
		return a, nil

	case identifyMsg:
		a.busy = false
		if msg.err != nil {
			a.setStatus(msg.err.Error(), true)
		} else {
			a.setStatus("connected to "+keithley2000.Resource(a.cfg.Address), false)
		}
		return a, nil

	case singleShotMsg:
		a.busy = false
		if msg.err != nil {
			a.setStatus(msg.err.Error(), true)
		} else {
			a.setStatus("", false)
		}
		return a, nil

	case exportMsg:
		switch {
		case errors.Is(msg.err, measure.ErrExists):
			a.confirming = true
			a.pending = msg.path
		case msg.err != nil:
			a.setStatus(msg.err.Error(), true)
		default:
			a.setStatus(fmt.Sprintf("wrote %d lines to %s", msg.n, msg.path), false)
		}
		return a, nil

	case tea.KeyMsg:
		if a.confirming {
			return a.updateConfirm(msg)
		}
		if a.prompting {
			return a.updatePrompt(msg)
		}
		return a.updateKeys(msg)
	}

	var cmd tea.Cmd
	a.readings, cmd = a.readings.Update(msg)
	return a, cmd
}

func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, confirmKey):
		path := a.pending
		a.confirming, a.pending = false, ""
		return a, a.export(path, true)
	case key.Matches(msg, cancelKey):
		a.confirming, a.pending = false, ""
		a.setStatus("output cancelled", false)
	}
	return a, nil
}

func (a App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, acceptKey):
		path := strings.TrimSpace(a.prompt.Value())
		a.prompting = false
		a.prompt.Blur()
		if path == "" {
			a.setStatus("output cancelled", false)
			return a, nil
		}
		return a, a.export(path, false)
	case msg.Type == tea.KeyEsc:
		a.prompting = false
		a.prompt.Blur()
		a.setStatus("output cancelled", false)
		return a, nil
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.st.Stop()
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.Up):
		a.focus = (a.focus + fieldCount - 1) % fieldCount
	case key.Matches(msg, a.keys.Down):
		a.focus = (a.focus + 1) % fieldCount
	case key.Matches(msg, a.keys.Left):
		a.adjust(-1)
	case key.Matches(msg, a.keys.Right):
		a.adjust(+1)
	case key.Matches(msg, a.keys.Toggle):
		a.cfg.SingleShot = !a.cfg.SingleShot
	case key.Matches(msg, a.keys.Identify):
		if a.busy {
			return a, nil
		}
		a.busy = true
		a.setStatus("identifying "+keithley2000.Resource(a.cfg.Address), false)
		return a, a.identify(a.cfg.Address)
	case key.Matches(msg, a.keys.Start):
		return a.start()
	case key.Matches(msg, a.keys.Stop):
		if a.st.Stop() {
			a.setStatus("stopped", false)
		}
	case key.Matches(msg, a.keys.Export):
		a.prompting = true
		a.prompt.SetValue(DefaultExportName)
		a.prompt.CursorEnd()
		a.prompt.Focus()
	default:
		var cmd tea.Cmd
		a.readings, cmd = a.readings.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) start() (tea.Model, tea.Cmd) {
	cfg := a.cfg
	if cfg.SingleShot {
		if a.busy {
			return a, nil
		}
		a.busy = true
		return a, func() tea.Msg {
			_, err := a.st.Start(cfg)
			return singleShotMsg{err: err}
		}
	}
	// Arming a run does no instrument I/O, so it happens here and can never
	// interleave with a STOP.
	run, err := a.st.Start(cfg)
	if err != nil {
		a.setStatus(err.Error(), true)
		return a, nil
	}
	a.setStatus("", false)
	a.refreshReadings()
	return a, a.schedule(run)
}

// adjust steps the focused setting by dir.
func (a *App) adjust(dir int) {
	switch a.focus {
	case fieldAddress:
		a.cfg.Address = stepInt(a.cfg.Address, dir, keithley2000.MinAddress, keithley2000.MaxAddress)
	case fieldFunction:
		fs := keithley2000.Functions()
		a.cfg.Function = fs[stepIndex(indexOf(fs, a.cfg.Function), dir, len(fs))]
	case fieldPeriod:
		a.cfg.Period = measure.Periods[stepIndex(indexOf(measure.Periods, a.cfg.Period), dir, len(measure.Periods))]
	case fieldSingleShot:
		a.cfg.SingleShot = !a.cfg.SingleShot
	}
}

func stepInt(v, dir, lo, hi int) int {
	v += dir
	if v < lo {
		return hi
	}
	if v > hi {
		return lo
	}
	return v
}

// stepIndex moves i by dir in a list of n choices, wrapping. i < 0 means
// nothing is chosen yet: forward picks the first choice, backward the last.
func stepIndex(i, dir, n int) int {
	if i < 0 {
		if dir > 0 {
			return 0
		}
		return n - 1
	}
	return (i + dir + n) % n
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func (a App) identify(addr int) tea.Cmd {
	return func() tea.Msg {
		idn, err := a.st.Identify(addr)
		return identifyMsg{idn: idn, err: err}
	}
}

func (a App) measure(gen uint64) tea.Cmd {
	return func() tea.Msg {
		return tickDoneMsg{gen: gen, err: a.st.Poller.Tick(gen)}
	}
}

func (a App) export(path string, overwrite bool) tea.Cmd {
	return func() tea.Msg {
		p, n, err := a.st.Export(path, overwrite)
		return exportMsg{path: p, n: n, err: err}
	}
}

func (a *App) setStatus(s string, isErr bool) {
	a.status, a.statusErr = s, isErr
}

func (a *App) refreshReadings() {
	entries := a.st.Buffer.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		if e.IsLabel {
			lines[i] = labelStyle.Render(e.String())
		} else {
			lines[i] = e.String()
		}
	}
	a.readings.SetContent(strings.Join(lines, "\n"))
	a.readings.GotoBottom()
}

// View implements tea.Model.
func (a App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Keithley 2000 Multimeter"))
	b.WriteString("\n")

	text := a.st.Readout.Text()
	rs := readoutStyle
	if text == measure.ErrorText || text == measure.AddressErrorText {
		rs = readoutErrStyle
	}
	b.WriteString(rs.Render(text))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(a.viewSettings()))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(a.readings.View()))
	b.WriteString("\n")

	switch {
	case a.confirming:
		b.WriteString(dialogStyle.Render(fmt.Sprintf("%s exists. Overwrite? (y/n)", a.pending)))
		b.WriteString("\n")
	case a.prompting:
		b.WriteString(a.prompt.View())
		b.WriteString("\n")
	}

	b.WriteString(a.viewStatus())
	b.WriteString("\n")
	b.WriteString(a.help.View(a.keys))
	return b.String()
}

func (a App) viewSettings() string {
	fn := unsetStyle.Render("(none)")
	if a.cfg.Function != keithley2000.FunctionNone {
		fn = valueStyle.Render(a.cfg.Function.String())
	}
	period := unsetStyle.Render("(none)")
	if a.cfg.Period != 0 {
		period = valueStyle.Render(measure.FormatPeriod(a.cfg.Period) + " s")
	}
	single := "[ ]"
	if a.cfg.SingleShot {
		single = "[x]"
	}
	rows := []struct {
		f     field
		name  string
		value string
	}{
		{fieldAddress, "GPIB Address", valueStyle.Render(fmt.Sprint(a.cfg.Address))},
		{fieldFunction, "Measurement", fn},
		{fieldPeriod, "Sampling Period", period},
		{fieldSingleShot, "Single Shot", valueStyle.Render(single)},
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		style := fieldStyle
		if r.f == a.focus {
			style = focusedStyle
		}
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, style.Render(r.name), r.value)
	}
	return strings.Join(lines, "\n")
}

func (a App) viewStatus() string {
	state := a.st.Poller.State()
	ss := idleStyle
	if state == measure.Running {
		ss = runningStyle
	}
	parts := []string{ss.Render(state.String()), fmt.Sprintf("%d entries", a.st.Buffer.Len())}
	if a.status != "" {
		if a.statusErr {
			parts = append(parts, errStyle.Render(a.status))
		} else {
			parts = append(parts, a.status)
		}
	}
	return statusBarStyle.Render(strings.Join(parts, " │ "))
}
