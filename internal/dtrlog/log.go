// Package dtrlog is the logging collaborator of spec.md §6: the engine
// traces malformed frames, encode/send failures and ignored timer starts
// through here; timeouts and reconfigs are counted in package telemetry
// rather than logged. DEBUG_DTR_PROTOCOL toggles
// trace-level output; when it is on, trace lines are also mirrored to a
// rotated file named with a strftime pattern, the same way the teacher
// names its rotated packet logs in tq.go.
package dtrlog

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Logger wraps charmbracelet/log with the two knobs DTR needs: a level
// derived from DEBUG_DTR_PROTOCOL, and an optional rotated trace file.
type Logger struct {
	*log.Logger

	mu         sync.Mutex
	tracePath  *strftime.Strftime
	traceFile  *os.File
	traceDay   string
}

// New constructs a Logger. debug maps to spec.md §6's DEBUG_DTR_PROTOCOL
// flag: when set, the level is Debug and traceFilePattern (a strftime
// pattern, e.g. "dtr-trace-%Y-%m-%d.log") is opened/rotated per day.
func New(debug bool, traceFilePattern string) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "dtr",
	})

	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}

	lg := &Logger{Logger: l}

	if debug && traceFilePattern != "" {
		if pattern, err := strftime.New(traceFilePattern); err == nil {
			lg.tracePath = pattern
		} else {
			l.Warn("dtrlog: invalid trace file pattern, tracing to stderr only", "pattern", traceFilePattern, "err", err)
		}
	}

	return lg
}

// Trace records a protocol-internal event (ignored timer starts, malformed
// frames, encode/send failures) at debug level, additionally appending to the rotated
// trace file when one is configured.
func (l *Logger) Trace(msg string, keyvals ...any) {
	l.Debug(msg, keyvals...)
	l.writeTraceFile(msg)
}

func (l *Logger) writeTraceFile(msg string) {
	if l.tracePath == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	day := now.Format("2006-01-02")

	if l.traceFile == nil || day != l.traceDay {
		if l.traceFile != nil {
			_ = l.traceFile.Close()
		}

		name := l.tracePath.FormatString(now)

		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Warn("dtrlog: could not open trace file", "path", name, "err", err)
			l.tracePath = nil

			return
		}

		l.traceFile = f
		l.traceDay = day
	}

	_, _ = l.traceFile.WriteString(now.Format(time.RFC3339Nano) + " " + msg + "\n")
}

// Close releases the rotated trace file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.traceFile != nil {
		return l.traceFile.Close()
	}

	return nil
}
