// Package logx is the append-only log sink every actor writes through:
// one file, one writer lock, one line per event, tagged with the
// actor's role and id the way the original's logf() tagged lines with
// the caller's pid. Built on rs/zerolog the way the logiface/zerolog
// adapter in the wider example pack wraps a zerolog.Logger: a thin
// struct holding the configured logger plus a couple of constructors.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger owns the underlying file and hands out per-actor child
// loggers. The file is opened append-only so multiple goroutines can
// interleave writes safely through zerolog.SyncWriter without
// truncating each other's output.
type Logger struct {
	f *os.File
	z zerolog.Logger
}

// Open creates (or appends to) the log file at path and wraps it in a
// SyncWriter, matching the original's sem_log-guarded append semantics
// without needing a named semaphore: zerolog.SyncWriter serializes
// writes with its own mutex.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := zerolog.SyncWriter(f)
	z := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{f: f, z: z}, nil
}

// New wraps an arbitrary writer instead of a file, for tests and for a
// console/stderr destination when no log path was configured.
func New(w io.Writer) *Logger {
	return &Logger{z: zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger()}
}

// For returns a child logger tagged with the actor's role and id, the
// equivalent of every logf() call site in the original prefixing its
// own role and pid onto the line.
func (l *Logger) For(role string, actorID int) zerolog.Logger {
	return l.z.With().Str("role", role).Int("actor_id", actorID).Logger()
}

// Close releases the underlying file, if any.
func (l *Logger) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
