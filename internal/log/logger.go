// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

var currentLevel atomic.Uint32

var logger atomic.Pointer[zerolog.Logger]

// exit is swapped in tests so Fatalf can be observed.
var (
	osExit = os.Exit
	exit   = osExit
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05.000000"})
	SetLevel(LevelInfo)
}

// SetOutput replaces the destination of every subsequent message. Passing a
// plain io.Writer produces JSON lines, a zerolog.ConsoleWriter produces the
// human readable form.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	logger.Store(&l)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func emit(level LogLevel, msg string) {
	l := logger.Load()
	// WithLevel keeps zerolog from exiting on fatal; exit is handled here.
	l.WithLevel(level.zerolog()).Msg(msg)
}

// --- Public Logging Functions ---

func Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		emit(LevelDebug, fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		emit(LevelWarn, fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		emit(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	emit(LevelFatal, fmt.Sprintf(format, v...))
	exit(1)
}

// --- Functions without formatting (convenience) ---

func Debug(v ...any) {
	if shouldLog(LevelDebug) {
		emit(LevelDebug, fmt.Sprint(v...))
	}
}

func Info(v ...any) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, fmt.Sprint(v...))
	}
}

func Warn(v ...any) {
	if shouldLog(LevelWarn) {
		emit(LevelWarn, fmt.Sprint(v...))
	}
}

func Error(v ...any) {
	if shouldLog(LevelError) {
		emit(LevelError, fmt.Sprint(v...))
	}
}

func Fatal(v ...any) {
	emit(LevelFatal, fmt.Sprint(v...))
	exit(1)
}
