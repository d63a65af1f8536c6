// Package logger is the single log sink for tally. Informational output can be
// silenced with Quiet; errors are always written.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu    sync.RWMutex
	log   = newLogger(os.Stderr)
	quiet bool
)

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(w)
}

// SetQuiet suppresses Debug, Info and Warn output when q is true.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

func current() (zerolog.Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return log, quiet
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, kv ...interface{}) {
	l, q := current()
	if q {
		return
	}
	l.Debug().Fields(kv).Msg(msg)
}

func Info(msg string, kv ...interface{}) {
	l, q := current()
	if q {
		return
	}
	l.Info().Fields(kv).Msg(msg)
}

func Warn(msg string, kv ...interface{}) {
	l, q := current()
	if q {
		return
	}
	l.Warn().Fields(kv).Msg(msg)
}

// Error is always written, regardless of Quiet.
func Error(err error, msg string, kv ...interface{}) {
	l, _ := current()
	l.Error().Err(err).Fields(kv).Msg(msg)
}
