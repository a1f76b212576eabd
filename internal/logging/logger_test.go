package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/folio-media/folio/internal/events"
)

func TestLogger_ComponentTag(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("hydrate", nil)
	logger.SetOutput(&buf)

	logger.Info().Str("path", "/cats").Msg("page merged")

	out := buf.String()
	if !strings.Contains(out, "page merged") || !strings.Contains(out, "hydrate") {
		t.Errorf("output = %q, want message and component", out)
	}
}

func TestLogger_NamedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger("cli", nil)
	parent.SetOutput(&buf)

	parent.Named("warm").Warn().Msg("folder did not complete")

	out := buf.String()
	if !strings.Contains(out, "warm") || !strings.Contains(out, "folder did not complete") {
		t.Errorf("output = %q", out)
	}
}

func TestLogger_WarningsReachTheBus(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventLog)

	logger := NewLogger("browse", bus)
	logger.SetOutput(&bytes.Buffer{})

	logger.Info().Msg("not forwarded")
	logger.Warn().Msg("fetch failed")
	logger.Error().Msg("gave up")

	want := []struct {
		msg   string
		level events.LogLevel
	}{
		{"fetch failed", events.WarnLevel},
		{"gave up", events.ErrorLevel},
	}
	for _, w := range want {
		select {
		case ev := <-ch:
			le, ok := ev.(*events.LogEvent)
			if !ok {
				t.Fatalf("event = %T, want *events.LogEvent", ev)
			}
			if le.Message != w.msg || le.Level != w.level || le.Component != "browse" {
				t.Errorf("log event = %+v, want %q at %s", le, w.msg, w.level)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("no log event for %q", w.msg)
		}
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.SetOutput(&bytes.Buffer{})
	logger.Warn().Msg("ignored")
	if logger.Named("other") != logger {
		t.Error("Named on a nop logger should return it unchanged")
	}
}
