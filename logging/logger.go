// Package logging provides the diagnostic sink used by the scheduler and the
// process-level logger setup.
package logging

import (
	"log"
	"sync"

	"github.com/rs/zerolog"
)

// A Logger receives diagnostic text. It has no return value and must not
// panic back into its caller.
type Logger interface {
	Log(msg string)
}

type nopLogger struct{}

func (nopLogger) Log(string) {}

// Nop is a Logger that drops everything.
var Nop Logger = nopLogger{}

// StdLogger writes lines into a standard library logger.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger wraps a *log.Logger.
func NewStdLogger(logger *log.Logger) *StdLogger {
	return &StdLogger{Logger: logger}
}

// Log prints the message as one line.
func (l *StdLogger) Log(msg string) {
	l.Println(msg)
}

// ZerologLogger writes messages as zerolog events at a fixed level.
type ZerologLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewZerolog adapts a zerolog.Logger. Messages are written at info level.
func NewZerolog(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{
		logger: logger,
		level:  zerolog.InfoLevel,
	}
}

// WithLevel returns a copy of the logger that writes at the given level.
func (l *ZerologLogger) WithLevel(level zerolog.Level) *ZerologLogger {
	c := *l
	c.level = level

	return &c
}

// Log writes the message.
func (l *ZerologLogger) Log(msg string) {
	l.logger.WithLevel(l.level).Str("component", "mtloop").Msg(msg)
}

// Recorder keeps every line it receives. It is safe for concurrent use.
type Recorder struct {
	lock  sync.Mutex
	lines []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log appends the message.
func (r *Recorder) Log(msg string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.lines = append(r.lines, msg)
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]string, len(r.lines))
	copy(out, r.lines)

	return out
}

// Reset drops all the recorded lines.
func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.lines = nil
}

// safeLogger recovers panics raised by the wrapped logger.
type safeLogger struct {
	inner Logger
}

// Safe wraps a logger so that a panicking sink never unwinds into the
// caller. A nil logger becomes Nop.
func Safe(logger Logger) Logger {
	switch l := logger.(type) {
	case nil:
		return Nop
	case safeLogger, nopLogger:
		return l
	}

	return safeLogger{inner: logger}
}

func (l safeLogger) Log(msg string) {
	defer func() {
		_ = recover()
	}()

	l.inner.Log(msg)
}

// Multi fans a message out to several loggers.
func Multi(loggers ...Logger) Logger {
	return multiLogger(loggers)
}

type multiLogger []Logger

func (m multiLogger) Log(msg string) {
	for _, l := range m {
		l.Log(msg)
	}
}
