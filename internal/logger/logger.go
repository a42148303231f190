/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package logger provides a leveled logger. Each parse session owns one,
// and the package-level functions serve the CLI.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is an ordinal severity threshold. A message is written when its
// level is at or below the logger's level.
type Level int

const (
	// LevelSilent writes nothing.
	LevelSilent Level = iota
	// LevelError writes errors only. This is the session default.
	LevelError
	// LevelWarn adds warnings.
	LevelWarn
	// LevelInfo adds informational and verbose diagnostics.
	LevelInfo
	// LevelDebug writes everything.
	LevelDebug
)

// DefaultLevel is used when no explicit level is configured.
const DefaultLevel = LevelError

// ClampLevel maps an arbitrary integer onto the recognized range.
func ClampLevel(n int) Level {
	switch {
	case n <= int(LevelSilent):
		return LevelSilent
	case n >= int(LevelDebug):
		return LevelDebug
	default:
		return Level(n)
	}
}

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelSilent:
		return "silent"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Logger writes leveled, prefixed lines to a writer. Safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	out    *log.Logger
	level  Level
	prefix string
}

// New creates a Logger writing to w. A nil writer discards output.
func New(w io.Writer, level Level, prefix string) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		out:    log.New(w, "", 0),
		level:  level,
		prefix: prefix,
	}
}

// Level returns the logger's threshold.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel changes the logger's threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput redirects the logger. A nil writer discards output.
func (l *Logger) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = log.New(w, "", 0)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level != LevelSilent && level <= l.Level()
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(LevelError, "error: ", format, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, "warning: ", format, args...)
}

// Infof logs an informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(LevelInfo, "", format, args...)
}

// Debugf logs a debug message.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(LevelDebug, "debug: ", format, args...)
}

// Verbose logs a diagnostic requested by a per-call verbose flag.
// It is written whenever verbose is set and the logger is not silent.
func (l *Logger) Verbose(verbose bool, format string, args ...any) {
	if !verbose {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level == LevelSilent {
		return
	}
	l.out.Printf(l.prefix+format, args...)
}

func (l *Logger) logf(level Level, tag, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	l.out.Printf(l.prefix+tag+format, args...)
}

// Default logs to stderr at info level. SetOutput(io.Discard) silences it.
// std is never reassigned; SetOutput and SetLevel change it in place.
var std = New(os.Stderr, LevelInfo, "")

// SetOutput configures the default logger output destination.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetLevel configures the default logger threshold.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// Error logs an error message on the default logger.
func Error(format string, args ...any) {
	std.Errorf(format, args...)
}

// Warn logs a warning message on the default logger.
func Warn(format string, args ...any) {
	std.Warnf(format, args...)
}

// Info logs an informational message on the default logger.
func Info(format string, args ...any) {
	std.Infof(format, args...)
}

// Debug logs a debug message on the default logger.
func Debug(format string, args ...any) {
	std.Debugf(format, args...)
}
