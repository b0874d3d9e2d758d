// Package logging builds podtail's diagnostic logger.
//
// Diagnostics never share a stream with tailed output: they go to stderr (or
// a file) so stdout carries nothing but source lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	reset        = "\033[0m"
	bold         = "\033[1m"
	dim          = "\033[2m"
	red          = "\033[31m"
	gray         = "\033[90m"
	brightRed    = "\033[91m"
	brightYellow = "\033[93m"
	brightWhite  = "\033[97m"
)

// Options selects where diagnostics go and how much is logged.
type Options struct {
	Debug    bool   // log at debug level instead of warn
	File     string // append to this file instead of stderr
	Disabled bool   // drop everything unless File is set
	Colors   bool   // colorize console output
	Stderr   io.Writer
}

// New returns a logger and a function that flushes and releases its output.
func New(opts Options) (*zap.Logger, func() error, error) {
	noop := func() error { return nil }

	var (
		sink    zapcore.WriteSyncer
		closeFn = noop
		colors  = opts.Colors
	)
	switch {
	case strings.TrimSpace(opts.File) != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		sink = zapcore.AddSync(file)
		closeFn = file.Close
		colors = false
	case opts.Disabled:
		return zap.NewNop(), noop, nil
	default:
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		sink = zapcore.Lock(zapcore.AddSync(w))
	}

	level := zapcore.WarnLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(consoleEncoder(colors), sink, level)
	logger := zap.New(core, zap.AddCaller())

	cleanup := func() error {
		_ = logger.Sync()
		return closeFn()
	}
	return logger, cleanup, nil
}

func levelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return gray
	case zapcore.InfoLevel:
		return brightWhite
	case zapcore.WarnLevel:
		return brightYellow
	case zapcore.ErrorLevel:
		return brightRed
	default:
		return red
	}
}

// consoleEncoder renders "15:04:05 W mux persist failed {...}".
func consoleEncoder(colors bool) zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()

	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		ts := t.Format("15:04:05")
		if colors {
			ts = dim + ts + reset
		}
		enc.AppendString(ts)
	}

	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		letter := "?"
		switch level {
		case zapcore.DebugLevel:
			letter = "D"
		case zapcore.InfoLevel:
			letter = "I"
		case zapcore.WarnLevel:
			letter = "W"
		case zapcore.ErrorLevel:
			letter = "E"
		}
		if colors {
			letter = levelColor(level) + bold + letter + reset
		}
		enc.AppendString(letter)
	}

	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		file := strings.TrimSuffix(filepath.Base(caller.File), ".go")
		if colors {
			file = dim + file + reset
		}
		enc.AppendString(file)
	}

	return zapcore.NewConsoleEncoder(cfg)
}
