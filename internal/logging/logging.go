// Package logging builds the process slog.Logger on top of zap.
package logging

import (
	"io"
	"log/slog"
	"os"

	errors "github.com/Laisky/errors/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures New. Records below warn go to Out, the rest to ErrOut.
type Options struct {
	Level  zapcore.Level
	Format string
	Out    io.Writer
	ErrOut io.Writer
}

// Logger is a slog.Logger whose records are written by zap.
type Logger struct {
	*slog.Logger
	zap *zap.Logger
}

// New builds a Logger. Nil writers default to stdout and stderr.
func New(opts Options) (*Logger, error) {
	enc, err := encoder(opts.Format)
	if err != nil {
		return nil, err
	}
	out, errOut := opts.Out, opts.ErrOut
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	level := opts.Level
	high := zap.LevelEnablerFunc(func(lv zapcore.Level) bool {
		return lv >= zapcore.WarnLevel && lv >= level
	})
	low := zap.LevelEnablerFunc(func(lv zapcore.Level) bool {
		return lv < zapcore.WarnLevel && lv >= level
	})
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(errOut)), high),
		zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), low),
	)

	return &Logger{
		Logger: slog.New(zapslog.NewHandler(core, zapslog.WithCaller(true))),
		zap:    zap.New(core),
	}, nil
}

// Sync flushes buffered records.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func encoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	switch format {
	case "", FormatJSON:
		return zapcore.NewJSONEncoder(cfg), nil
	case FormatConsole:
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	}
	return nil, errors.Errorf("unknown log format %q", format)
}
