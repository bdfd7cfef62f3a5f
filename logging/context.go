// Copyright 2025 The Ctxlog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"ctxlog.dev/ctxlog/scope"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger, for code that receives a
// context but no logger. See [FromContext].
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns a [ContextLogger] bound to ctx and to the logger stored
// with [WithLogger], or nil when ctx carries no logger. The nil value is safe
// to call and logs nothing.
func FromContext(ctx context.Context) *ContextLogger {
	l, _ := ctx.Value(loggerKey{}).(*Logger)
	if l == nil {
		return nil
	}
	return NewContextLogger(ctx, l)
}

// ContextLogger binds a [Logger] to one context so call sites inside a
// request do not repeat it.
//
// Trace and span ids come from the scope when present and otherwise from an
// active OpenTelemetry span in the context.
//
// Thread-safe: Safe to use concurrently. Each instance is typically
// created per-request and used by a single goroutine.
type ContextLogger struct {
	logger  *Logger
	ctx     context.Context
	traceID string
	spanID  string
}

// NewContextLogger creates a context-aware logger.
func NewContextLogger(ctx context.Context, logger *Logger) *ContextLogger {
	cl := &ContextLogger{logger: logger, ctx: ctx}

	store := scope.FromContext(ctx)
	cl.traceID = lookup(store, scope.KeyTraceID)
	cl.spanID = lookup(store, scope.KeySpanID)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		if cl.traceID == "" {
			cl.traceID = sc.TraceID().String()
		}
		if cl.spanID == "" {
			cl.spanID = sc.SpanID().String()
		}
	}
	return cl
}

// Logger returns the underlying [Logger].
func (cl *ContextLogger) Logger() *Logger {
	if cl == nil {
		return nil
	}
	return cl.logger
}

// Context returns the bound context.
func (cl *ContextLogger) Context() context.Context {
	if cl == nil {
		return context.Background()
	}
	return cl.ctx
}

// TraceID returns the trace ID if available.
func (cl *ContextLogger) TraceID() string {
	if cl == nil {
		return ""
	}
	return cl.traceID
}

// SpanID returns the span ID if available.
func (cl *ContextLogger) SpanID() string {
	if cl == nil {
		return ""
	}
	return cl.spanID
}

// Trace logs at TRACE level with the bound context.
func (cl *ContextLogger) Trace(msg string, details ...Detail) {
	cl.log(LevelTrace, msg, details)
}

// Debug logs at DEBUG level with the bound context.
func (cl *ContextLogger) Debug(msg string, details ...Detail) {
	cl.log(LevelDebug, msg, details)
}

// Info logs at INFO level with the bound context.
func (cl *ContextLogger) Info(msg string, details ...Detail) {
	cl.log(LevelInfo, msg, details)
}

// Warn logs at WARN level with the bound context.
func (cl *ContextLogger) Warn(msg string, details ...Detail) {
	cl.log(LevelWarn, msg, details)
}

// Error logs at ERROR level with the bound context.
func (cl *ContextLogger) Error(msg string, details ...Detail) {
	cl.log(LevelError, msg, details)
}

// Critical logs at CRITICAL level with the bound context.
func (cl *ContextLogger) Critical(msg string, details ...Detail) {
	cl.log(LevelCritical, msg, details)
}

func (cl *ContextLogger) log(level Level, msg string, details []Detail) {
	if cl == nil || cl.logger == nil {
		return
	}
	cl.logger.log(cl.ctx, level, msg, details)
}
