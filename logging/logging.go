// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package logging

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	RequestIDKey contextKey = "request-id"
	LoggerKey    contextKey = "logger"
)

var (
	globalOnce   sync.Once
	GlobalLogger Logger
)

type RequestID string

func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

func (r RequestID) String() string {
	return string(r)
}

// Logger wraps a zap SugaredLogger and remembers the values attached to it
// so tests and handlers can read them back.
type Logger struct {
	*zap.SugaredLogger
	id     RequestID
	values map[string]any
}

func NewLogger(service string) Logger {
	baseLogger, err := zap.NewDevelopment(
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}
	return Logger{
		SugaredLogger: baseLogger.Sugar().Named(service),
		values:        map[string]any{},
	}
}

// NewProductionLogger emits JSON at the given level.
func NewProductionLogger(service string, level string) Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	baseLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return Logger{
		SugaredLogger: baseLogger.Sugar().Named(service),
		values:        map[string]any{},
	}
}

func NewTestLogger() Logger {
	return Logger{
		SugaredLogger: zap.NewNop().Sugar(),
		values:        map[string]any{},
	}
}

func InitGlobalLogger(service string) Logger {
	globalOnce.Do(func() {
		GlobalLogger = NewLogger(service)
	})
	return GlobalLogger
}

func (logger Logger) with(key string, value any) Logger {
	values := make(map[string]any, len(logger.values)+1)
	for k, v := range logger.values {
		values[k] = v
	}
	values[key] = value
	return Logger{
		SugaredLogger: logger.SugaredLogger.With(key, value),
		id:            logger.id,
		values:        values,
	}
}

func (logger Logger) WithRequestID(id RequestID) Logger {
	if id == "" {
		return logger
	}
	updated := logger.with(string(RequestIDKey), id)
	updated.id = id
	return updated
}

func (logger Logger) WithFeatureView(name string) Logger {
	return logger.with("feature-view", name)
}

func (logger Logger) WithSource(backend, location string) Logger {
	return logger.with("source-backend", backend).with("source-location", location)
}

func (logger Logger) WithJob(id string) Logger {
	return logger.with("job-id", id)
}

func (logger Logger) WithValues(values map[string]any) Logger {
	for k, v := range values {
		logger = logger.with(k, v)
	}
	return logger
}

func (logger Logger) GetValue(key string) any {
	return logger.values[key]
}

func (logger Logger) GetRequestID() RequestID {
	return logger.id
}

// InitializeRequestID creates a request ID, attaches it to the logger and
// stores both on the returned context.
func (logger Logger) InitializeRequestID(ctx context.Context) (RequestID, context.Context, Logger) {
	if id := GetRequestIDFromContext(ctx); id != "" {
		return id, ctx, GetLoggerFromContext(ctx)
	}
	id := NewRequestID()
	ctx = AttachRequestID(id, ctx, logger)
	return id, ctx, GetLoggerFromContext(ctx)
}

func AttachRequestID(id RequestID, ctx context.Context, logger Logger) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, id)
	return context.WithValue(ctx, LoggerKey, logger.WithRequestID(id))
}

func GetRequestIDFromContext(ctx context.Context) RequestID {
	id, ok := ctx.Value(RequestIDKey).(RequestID)
	if !ok {
		return ""
	}
	return id
}

// GetLoggerFromContext returns the logger stored on ctx, or the global
// logger when none is attached.
func GetLoggerFromContext(ctx context.Context) Logger {
	logger, ok := ctx.Value(LoggerKey).(Logger)
	if !ok {
		if GlobalLogger.SugaredLogger == nil {
			return NewTestLogger()
		}
		return GlobalLogger
	}
	return logger
}

func AddLoggerToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
