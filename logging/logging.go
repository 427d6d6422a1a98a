// Package logging builds the zap logger used by codebundle. The session is
// an interactive terminal program, so log output always goes to a rotating
// file instead of stderr.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the log destination and verbosity.
type Options struct {
	Path       string // log file path
	Level      string // "debug", "info", "warn", "error"
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup creates a file-backed zap logger. The returned logger is never nil;
// on bad input it falls back to sane defaults rather than failing the run.
func Setup(opts Options, appVersion string) *zap.Logger {
	if opts.Path == "" {
		return zap.NewNop()
	}

	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(opts.Level); err == nil {
		level = parsed
	}

	writer := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(writer),
		level,
	)

	return zap.New(core, zap.Fields(
		zap.String("appName", "codebundle"),
		zap.String("appVersion", appVersion),
	))
}
