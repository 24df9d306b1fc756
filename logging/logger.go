// Package logging wires the ambient zap logger used across the navgen
// pipeline to a rotating file sink, for long batch bakes that run many
// Generator.Build calls and want one continuous log stream.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileLogger builds a zap.Logger that writes JSON-encoded entries to path,
// rotated by lumberjack according to cfg. A zero-value FileLoggerConfig
// falls back to lumberjack's own defaults (100MB, no age limit, no backup
// limit, no compression).
func NewFileLogger(path string, cfg FileLoggerConfig) *zap.Logger {
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(sink),
		zap.NewAtomicLevelAt(zapcore.InfoLevel),
	)
	return zap.New(core)
}

// FileLoggerConfig tunes the lumberjack rotation policy behind NewFileLogger.
// It is unrelated to recast.BuildConfig; kept as a distinct type since log
// rotation has nothing to do with mesh generation tuning.
type FileLoggerConfig struct {
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// DefaultFileLoggerConfig keeps lumberjack's 100MB size limit but adds a
// 30-day age cutoff, a 5-backup limit and gzip compression of rotated
// files, suited to a long-running bake farm that should not accumulate logs
// indefinitely.
func DefaultFileLoggerConfig() FileLoggerConfig {
	return FileLoggerConfig{
		MaxSizeMB:  100,
		MaxAgeDays: 30,
		MaxBackups: 5,
		Compress:   true,
	}
}
