// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package logging provides the structured logger used across the scheduler,
// session router, IPC substrate, and every transport adapter.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the narrow structured-logging surface consumed by every
// component in this module. Keeping it an interface (rather than *zap.Logger
// directly) lets tests substitute a no-op or recording implementation.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})

	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})

	// With returns a child logger with the given key/value pairs attached
	// to every subsequent entry (session id, node id, ...).
	With(kv ...interface{}) Logger

	Sync() error
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// Options configures NewLogger.
type Options struct {
	// Level is the minimum enabled level: "debug", "info", "warn", "error".
	Level string
	// FilePath, when non-empty, rotates logs through lumberjack in addition
	// to stdout.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
}

// NewLogger builds the application-wide Logger: a zero-argument-friendly
// default plus optional overrides.
func NewLogger(opts Options) (Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		_ = level.UnmarshalText([]byte(opts.Level))
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{s: zl.Sugar()}, nil
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

// NewNop returns a Logger that discards everything; used by tests that don't
// care about log output.
func NewNop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debugf(t string, a ...interface{}) { l.s.Debugf(t, a...) }
func (l *zapLogger) Infof(t string, a ...interface{})  { l.s.Infof(t, a...) }
func (l *zapLogger) Warnf(t string, a ...interface{})  { l.s.Warnf(t, a...) }
func (l *zapLogger) Errorf(t string, a ...interface{}) { l.s.Errorf(t, a...) }
func (l *zapLogger) Fatalf(t string, a ...interface{}) { l.s.Fatalf(t, a...) }

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.s.Sync() }
