package ops

import (
	"fmt"
	"io"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// ANSI color constants used by NewANSILogger to highlight trace events by
// severity (spec.md §6).
const (
	ColorWarn  = "\x1b[33m"
	ColorOK    = "\x1b[32m"
	ColorErr   = "\x1b[31m"
	ColorReset = "\x1b[0m"
)

// TraceEvent is the structured record emitted by LoggingWrapper around an
// op's execution (spec.md §6: start/success/failure).
type TraceEvent struct {
	// Phase is one of "start", "success", "failure" (LoggingWrapper), or
	// "near-timeout" (TimeBoundWrapper).
	Phase string
	// OpName is the name the emitting wrapper was constructed with.
	OpName string
	// Caller is also the emitting wrapper's name; it is a
	// "{file}::{line}" call-site capture when the wrapper was built through
	// WithCallerName or the Perform façade (spec.md §6).
	Caller string
	// Message is the verbatim, stable trace string for this phase
	// (spec.md §6: "Starting op: {name}", "Op '{name}' completed in
	// {sec:.3f} seconds", "Op '{name}' failed after {sec:.3f} seconds:
	// {errorDescription}").
	Message string
	// Err is set only for Phase == "failure".
	Err error
}

// Logger is the pluggable trace sink behind LoggingWrapper (SPEC_FULL.md
// §4.12).
type Logger interface {
	Event(evt TraceEvent)
}

// ansiLogger is the default Logger, backed by a real structured logging
// library (logiface) writing through stumpy's JSON event encoder, with the
// encoded line wrapped in an ANSI color escape keyed by severity.
type ansiLogger struct {
	logger *logiface.Logger[*stumpy.Event]
}

// NewANSILogger builds a Logger that writes ANSI-colored, structured JSON
// trace lines to w (typically os.Stdout).
func NewANSILogger(w io.Writer) Logger {
	writer := logiface.WriterFunc[*stumpy.Event](func(e *stumpy.Event) error {
		color := colorForLevel(e.Level())
		_, err := fmt.Fprintf(w, "%s%s%s\n", color, e.Bytes(), ColorReset)
		return err
	})
	logger := logiface.New[*stumpy.Event](
		stumpy.L.WithStumpy(),
		stumpy.L.WithWriter(writer),
	)
	return &ansiLogger{logger: logger}
}

func colorForLevel(level logiface.Level) string {
	switch level {
	case logiface.LevelError, logiface.LevelCritical, logiface.LevelAlert, logiface.LevelEmergency:
		return ColorErr
	case logiface.LevelWarning:
		return ColorWarn
	default:
		return ColorOK
	}
}

// Event implements Logger, routing each TraceEvent phase to the appropriate
// logiface severity.
func (a *ansiLogger) Event(evt TraceEvent) {
	var b *logiface.Builder[*stumpy.Event]
	switch evt.Phase {
	case "failure":
		b = a.logger.Err()
	case "start":
		b = a.logger.Debug()
	default:
		b = a.logger.Info()
	}
	if b == nil {
		return
	}
	b = b.Str("phase", evt.Phase).Str("op", evt.OpName).Str("caller", evt.Caller)
	if evt.Err != nil {
		b = b.Str("error", evt.Err.Error())
	}
	b.Log(evt.Message)
}

// testLogger is an in-memory Logger recording every emitted event, for use
// in tests that assert on trace content without depending on stdout.
type testLogger struct {
	mu     sync.Mutex
	events []TraceEvent
}

// NewTestLogger builds an in-memory Logger suitable for test assertions.
func NewTestLogger() *testLogger {
	return &testLogger{}
}

func (t *testLogger) Event(evt TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, evt)
}

// Events returns a snapshot of every event recorded so far.
func (t *testLogger) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}
