// Package logging provides the zerolog-backed logger used across folio.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/folio-media/folio/internal/events"
)

const timeFormat = "15:04:05"

// Logger is a zerolog logger tagged with a component name. Warnings and
// errors are mirrored onto an event bus when one is attached.
type Logger struct {
	zlog      zerolog.Logger
	component string
	bus       *events.EventBus
	out       io.Writer
	nop       bool
}

// NewLogger creates a console logger on stdout; stderr belongs to progress bars.
func NewLogger(component string, bus *events.EventBus) *Logger {
	l := &Logger{component: component, bus: bus}
	l.SetOutput(os.Stdout)
	return l
}

// NewNopLogger returns a logger that discards everything. Library code
// falls back to it when the caller passes nil.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), component: "nop", out: io.Discard, nop: true}
}

// NewDefaultCLILogger creates the logger the CLI starts with.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli", nil)
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Named returns a logger for another component sharing this one's output
// and bus.
func (l *Logger) Named(component string) *Logger {
	if l.nop {
		return l
	}
	child := &Logger{component: component, bus: l.bus}
	child.SetOutput(l.out)
	return child
}

// SetOutput sends console output to w, for example the writer that prints
// above running progress bars.
func (l *Logger) SetOutput(w io.Writer) {
	if l.nop {
		return
	}
	l.out = w
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}).
		With().
		Timestamp().
		Str("component", l.component).
		Logger()
	if l.bus != nil {
		zl = zl.Hook(busHook{bus: l.bus, component: l.component})
	}
	l.zlog = zl
}

// SetGlobalLevel sets the minimum level for every logger.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

type busHook struct {
	bus       *events.EventBus
	component string
}

func (h busHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	switch level {
	case zerolog.WarnLevel:
		h.bus.PublishLog(events.WarnLevel, msg, h.component, nil)
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		h.bus.PublishLog(events.ErrorLevel, msg, h.component, nil)
	}
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat})
}
