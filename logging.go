package uthread

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// LogLevel mirrors the handful of severities this library ever emits.
type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LogEntry is the structured payload passed to a Logger. Fields are
// populated sparsely: the library's own entries set Level, Op, Message,
// and a hostPID field, and leave TID at zero.
type LogEntry struct {
	Level   LogLevel
	Op      string
	TID     int
	Message string
	Fields  map[string]any
}

// Logger receives scheduling diagnostics. Implementations must not
// block or allocate in a way that could stall the preemption driver;
// in practice nothing on the signal-delivery path logs at all (see
// preempt.go), so this mostly matters for block/sleep/terminate.
type Logger interface {
	Log(entry LogEntry)
}

// NopLogger discards everything. It is the default so the library
// costs nothing unless a caller opts into logging via WithLogger.
type NopLogger struct{}

func (NopLogger) Log(LogEntry) {}

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger returns a Logger backed by zerolog, writing
// newline-delimited JSON to w (os.Stderr if w is nil).
func NewZerologLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &zerologLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *zerologLogger) Log(entry LogEntry) {
	var ev *zerolog.Event
	switch entry.Level {
	case LevelDebug:
		ev = l.logger.Debug()
	case LevelWarn:
		ev = l.logger.Warn()
	case LevelError:
		ev = l.logger.Error()
	default:
		ev = l.logger.Info()
	}
	ev = ev.Str("op", entry.Op).Int("tid", entry.TID)
	for k, v := range entry.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(entry.Message)
}

func emitMisuse(logger Logger, err *Error) {
	os.Stderr.WriteString(err.Error() + "\n")
	logger.Log(LogEntry{
		Level:   LevelWarn,
		Op:      err.Op,
		Message: err.Msg,
		Fields:  map[string]any{"hostPID": unix.Getpid()},
	})
}

func emitSystemAndExit(logger Logger, err *Error) {
	os.Stderr.WriteString(err.Error() + "\n")
	logger.Log(LogEntry{
		Level:   LevelError,
		Op:      err.Op,
		Message: err.Msg,
		Fields:  map[string]any{"hostPID": unix.Getpid()},
	})
	os.Exit(1)
}
