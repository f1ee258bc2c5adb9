// Package logger provides level-gated, column-formatted logging shared by
// the converter components.
//
// Each entry is a single line:
//
//	2006-01-02 15:04:05.000 | MODULE       | ACTION                 | LEVEL | message
//
// Levels (lowest to highest): debug, info, warn, error. Entries below the
// configured minimum are dropped.
//
// Usage:
//
//	log := logger.New("PARSER", cfg.LogLevel)
//	log.Infof("parse_done", "%d lines -> %d visits", lines, len(visits))
//	anonLog := log.Child("ANONYMIZER")
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level represents a log severity.
type Level int32

// Log severity constants, ordered lowest to highest.
const (
	LevelDebug Level = iota // per-line parser decisions
	LevelInfo               // pass summaries, loads, startup
	LevelWarn               // degraded but recoverable conditions
	LevelError              // recovered panics and I/O failures
)

// Logger writes lines for one module. Children created with Child share the
// parent's output and level.
type Logger struct {
	module string
	level  *atomic.Int32
	out    *log.Logger
}

// New creates a Logger writing to stderr. Unrecognized level strings
// default to "info".
func New(module, levelStr string) *Logger {
	return NewWriter(module, levelStr, os.Stderr)
}

// NewWriter creates a Logger writing to w.
func NewWriter(module, levelStr string, w io.Writer) *Logger {
	lvl := new(atomic.Int32)
	lvl.Store(int32(parseLevel(levelStr)))
	return &Logger{
		module: strings.ToUpper(module),
		level:  lvl,
		out:    log.New(w, "", 0),
	}
}

// Discard returns a Logger that drops everything. Useful as a default when
// a component is built without one.
func Discard() *Logger {
	l := NewWriter("", "error", io.Discard)
	l.level.Store(int32(LevelError + 1))
	return l
}

// Child returns a Logger for another module sharing this one's output and
// level. Changing the level on either affects both.
func (l *Logger) Child(module string) *Logger {
	return &Logger{module: strings.ToUpper(module), level: l.level, out: l.out}
}

// Module returns the upper-cased module tag.
func (l *Logger) Module() string { return l.module }

// SetLevel changes the minimum log level at runtime.
func (l *Logger) SetLevel(levelStr string) {
	l.level.Store(int32(parseLevel(levelStr)))
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= Level(l.level.Load())
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(action, msg string) { l.write(LevelDebug, "DEBUG", action, msg) }

// Info logs at INFO level.
func (l *Logger) Info(action, msg string) { l.write(LevelInfo, "INFO ", action, msg) }

// Warn logs at WARN level.
func (l *Logger) Warn(action, msg string) { l.write(LevelWarn, "WARN ", action, msg) }

// Error logs at ERROR level.
func (l *Logger) Error(action, msg string) { l.write(LevelError, "ERROR", action, msg) }

// Debugf logs a formatted message at DEBUG level. Arguments are not
// formatted when debug output is off, which matters on per-line paths.
func (l *Logger) Debugf(action, format string, args ...any) {
	if !l.Enabled(LevelDebug) {
		return
	}
	l.Debug(action, fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at INFO level.
func (l *Logger) Infof(action, format string, args ...any) {
	l.Info(action, fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at WARN level.
func (l *Logger) Warnf(action, format string, args ...any) {
	l.Warn(action, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at ERROR level.
func (l *Logger) Errorf(action, format string, args ...any) {
	l.Error(action, fmt.Sprintf(format, args...))
}

// Fatalf logs at ERROR level and exits with status 1.
func (l *Logger) Fatalf(action, format string, args ...any) {
	l.Errorf(action, format, args...)
	os.Exit(1)
}

func (l *Logger) write(level Level, levelLabel, action, msg string) {
	if !l.Enabled(level) {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.out.Printf("%s | %-12s | %-22s | %s | %s", ts, l.module, action, levelLabel, msg)
}

// parseLevel converts a string to a Level, defaulting to LevelInfo.
func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
