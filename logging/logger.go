// Package logging builds the zap loggers used across the client.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/krisalay/resilient-client/config"
)

// ANSI color codes
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[91m"
	yellow = "\033[93m"
	white  = "\033[97m"
	gray   = "\033[90m"
)

// New builds a logger from cfg. Format "text" is a compact console format,
// colored when writing to a terminal stream; "json" is zap's production
// encoding.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if cfg.Quiet && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}

	sink, colors, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "text", "":
		enc = consoleEncoder(colors)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()), nil
}

func openOutput(output string) (zapcore.WriteSyncer, bool, error) {
	switch output {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), true, nil
	case "stdout":
		return zapcore.Lock(os.Stdout), true, nil
	}
	ws, _, err := zap.Open(output)
	if err != nil {
		return nil, false, fmt.Errorf("logging: open %s: %w", output, err)
	}
	return ws, false, nil
}

// consoleEncoder prints "15:04:05 I offline  message  {fields}".
func consoleEncoder(colors bool) zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()

	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(colors, dim, t.Format("15:04:05")))
	}

	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var s, color string
		switch level {
		case zapcore.DebugLevel:
			s, color = "D", gray
		case zapcore.InfoLevel:
			s, color = "I", white
		case zapcore.WarnLevel:
			s, color = "W", yellow
		case zapcore.ErrorLevel:
			s, color = "E", red
		default:
			s, color = "F", red
		}
		enc.AppendString(paint(colors, color+bold, s))
	}

	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		file := caller.File
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		enc.AppendString(paint(colors, dim, strings.TrimSuffix(file, ".go")))
	}

	return zapcore.NewConsoleEncoder(cfg)
}

func paint(colors bool, code, s string) string {
	if !colors {
		return s
	}
	return code + s + reset
}
