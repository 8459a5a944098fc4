// Package monitoring holds the process-wide diagnostic loggers.
package monitoring

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/lmittmann/tint"
)

// Logf is the package-level diagnostic logger used by library packages. It
// defaults to log.Printf and may be replaced by SetLogger or UseConsole.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf logs per-frame detail. It is a no-op until UseConsole installs a
// console logger, which drops it below debug level.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// ConsoleLogger returns a coloured slog logger for interactive binaries.
func ConsoleLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// UseConsole installs a console logger as the slog default and routes Logf
// through it at info level and Debugf at debug level.
func UseConsole(w io.Writer, debug bool) *slog.Logger {
	logger := ConsoleLogger(w, debug)
	slog.SetDefault(logger)
	SetLogger(func(format string, v ...interface{}) {
		logger.Info(fmt.Sprintf(format, v...))
	})
	Debugf = func(format string, v ...interface{}) {
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			logger.Debug(fmt.Sprintf(format, v...))
		}
	}
	return logger
}
