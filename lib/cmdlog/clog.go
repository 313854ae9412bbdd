// Package cmdlog traces the SCPI traffic of a session with styled log lines.
package cmdlog

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

func isAscii(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	CmdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	R1Style  = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	R2Style  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// Session is the subset of an instrument session that gets traced.
type Session interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
	Close() error
}

// Tracer wraps a Session and logs each command and query with its response
// and round trip time at debug level.
type Tracer struct {
	Session
	logger *log.Logger
}

// Wrap returns s traced to logger.
func Wrap(s Session, logger *log.Logger) *Tracer {
	return &Tracer{Session: s, logger: logger}
}

// Command implements Session.
func (t *Tracer) Command(format string, a ...any) error {
	err := t.Session.Command(format, a...)
	if err != nil {
		t.logger.Error(CmdStyle.Render(format), "err", err)
	} else {
		t.logger.Debug(CmdStyle.Render(format) + "()")
	}
	return err
}

// Query implements Session.
func (t *Tracer) Query(q string) (string, error) {
	start := time.Now()
	a, err := t.Session.Query(q)
	rtt := time.Since(start)
	styled := CmdStyle.Render(q)
	if err != nil {
		t.logger.Error(styled, "err", err, "rtt", rtt)
		return a, err
	}
	t.logger.Debug(styled, "resp", Describe(a), "rtt", rtt)
	return a, nil
}

// Describe renders a response for the log: quoted text when printable,
// hex otherwise, and a placeholder when empty.
func Describe(a string) string {
	a = strings.TrimSuffix(a, "\n")
	if len(a) == 0 {
		return R1Style.Render("<no response>")
	}
	if isAscii(a) {
		return R2Style.Render(strings.TrimSpace(a))
	}
	var b strings.Builder
	for i := 0; i < len(a); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(hex(a[i]))
	}
	return R2Style.Render(b.String())
}

func hex(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0xf]})
}
