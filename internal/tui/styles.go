// Copyright (c) 2020–2024 The keithley2000 developers. All rights reserved.
// Project site: https://github.com/gotmc/keithley2000
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("39")
	colorBorder  = lipgloss.Color("240")
	colorDanger  = lipgloss.Color("196")
	colorSuccess = lipgloss.Color("46")
	colorDim     = lipgloss.Color("246")
	colorBar     = lipgloss.Color("235")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	// readout mimics the meter's own display
	readoutStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2)

	readoutErrStyle = readoutStyle.Foreground(colorDanger)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	fieldStyle   = lipgloss.NewStyle().Width(18)
	focusedStyle = fieldStyle.Foreground(colorPrimary).Bold(true)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	unsetStyle   = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	statusBarStyle = lipgloss.NewStyle().Background(colorBar).Padding(0, 1)
	runningStyle   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	idleStyle      = lipgloss.NewStyle().Foreground(colorDim)
	errStyle       = lipgloss.NewStyle().Foreground(colorDanger)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorDanger).
			Padding(0, 1)
)
