// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard shortcuts of the front panel.
type KeyMap struct {
	// Settings
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding

	// Controls
	Start    key.Binding
	Stop     key.Binding
	Identify key.Binding
	Export   key.Binding

	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k", "shift+tab"),
			key.WithHelp("↑/k", "prev field"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "tab"),
			key.WithHelp("↓/j", "next field"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←/h", "previous value"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l", "+"),
			key.WithHelp("→/l", "next value"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "single shot"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "START"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "STOP"),
		),
		Identify: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "*IDN?"),
		),
		Export: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "output"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns abbreviated help.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Identify, k.Export, k.Help, k.Quit}
}

// FullHelp returns complete help.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Toggle},
		{k.Start, k.Stop, k.Identify, k.Export},
		{k.Help, k.Quit},
	}
}

var (
	confirmKey = key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "overwrite"),
	)
	cancelKey = key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n/esc", "cancel"),
	)
	acceptKey = key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	)
)
