// Package kronoslog is the small leveled-warning logger wired into
// pkg/gc, pkg/value and pkg/kruntime's warn hooks: every "logged, never
// abort" anomaly (double-track, untrack-of-untracked, refcount
// saturation, intern-table-full, release work-stack overflow) flows
// through here instead of being silently swallowed or, worse, panicking.
//
// No structured-logging library appears anywhere in the retrieved
// example pack, so this stays on the standard log package, enriched with
// fatih/color for terminal-attached coloring the way the pack's CLI
// tooling colors its own diagnostics.
package kronoslog

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

// Level is a log severity.
type Level int

const (
	LevelWarn Level = iota
	LevelError
)

// Logger wraps the standard library logger with leveled, colorized
// output. The zero value is not usable; construct with New.
type Logger struct {
	std   *log.Logger
	warn  *color.Color
	error *color.Color
}

// New returns a Logger writing to os.Stderr with a "kronos: " prefix.
func New() *Logger {
	return &Logger{
		std:   log.New(os.Stderr, "kronos: ", log.LstdFlags),
		warn:  color.New(color.FgYellow),
		error: color.New(color.FgRed, color.Bold),
	}
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.std.Print(l.warn.Sprint("WARN ") + fmt.Sprintf(format, args...))
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.std.Print(l.error.Sprint("ERROR ") + fmt.Sprintf(format, args...))
}

// WarnHook adapts l into the func(string) signature pkg/gc, pkg/value and
// pkg/kruntime's SetWarnHook functions expect.
func (l *Logger) WarnHook() func(string) {
	return func(msg string) { l.Warnf("%s", msg) }
}
