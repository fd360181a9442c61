// Package logger builds the process-wide *slog.Logger.
//
// Records are encoded by a zap core (JSON in production, console for local
// runs) through the zapslog bridge, so handlers and services only ever depend
// on log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New returns a slog logger writing to stdout.
func New(level, format, service string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format, service)
}

// NewWithWriter is New with an explicit sink, used by tests.
func NewWithWriter(w io.Writer, level, format, service string) *slog.Logger {
	core := zapcore.NewCore(encoder(format), zapcore.AddSync(w), zapLevel(level))
	handler := zapslog.NewHandler(core, zapslog.WithCaller(false))
	l := slog.New(handler)
	if service != "" {
		l = l.With("service", service)
	}
	return l
}

func encoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "console") {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// zapLevel accepts the pino-style names used by LOG_LEVEL.
func zapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
