// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

// Package log provides context-aware logging utilities.
package log

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
)

type requestIDKey struct{}

type loggerKey struct{}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.Default())
}

// SetDefaultLogger sets the logger used when no logger is in context.
func SetDefaultLogger(logger *slog.Logger) {
	defaultLogger.Store(logger)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID stores the request id and tags the context logger with it.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	return With(ctx, slog.String("request_id", requestID))
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Ctx retrieves the logger from context, falling back to the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return defaultLogger.Load()
}

// With returns a new context whose logger carries args.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, Ctx(ctx).With(args...))
}

func FromRequest(r *http.Request) *slog.Logger {
	return Ctx(r.Context())
}
