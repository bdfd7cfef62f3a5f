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
	"io"
	"time"
)

// WithName sets the logger name stamped on every record.
func WithName(name string) Option {
	return func(l *Logger) { l.builder.Name = name }
}

// WithService sets name, version and environment of the service at once.
func WithService(service ServiceInfo) Option {
	return func(l *Logger) {
		l.builder.Service.Name = service.Name
		l.builder.Service.Version = service.Version
		l.builder.Service.Environment = service.Environment
		l.builder.Service.IP = service.IP
		l.builder.Service.Port = service.Port
	}
}

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(l *Logger) { l.builder.Service.Name = name }
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(l *Logger) { l.builder.Service.Version = version }
}

// WithEnvironment sets the environment.
func WithEnvironment(env string) Option {
	return func(l *Logger) { l.builder.Service.Environment = env }
}

// WithSchemaVersion overrides [DefaultSchemaVersion].
func WithSchemaVersion(version string) Option {
	return func(l *Logger) { l.builder.SchemaVersion = version }
}

// WithLevel sets the minimum level for the local sink (default TRACE).
func WithLevel(level Level) Option {
	return func(l *Logger) { l.initialLevel = level }
}

// WithFormat selects the built-in local sink.
func WithFormat(f Format) Option {
	return func(l *Logger) { l.format = f }
}

// WithJSONSink writes JSON lines locally (default).
func WithJSONSink() Option {
	return WithFormat(FormatJSON)
}

// WithConsoleSink writes human-readable colored lines locally.
func WithConsoleSink() Option {
	return WithFormat(FormatConsole)
}

// WithOutput sets the writer used by the built-in sinks (default stdout).
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// WithSink replaces the built-in sinks; [WithFormat] and [WithOutput] are
// then ignored. Use [MultiSink] to write to several destinations.
func WithSink(s Sink) Option {
	return func(l *Logger) {
		l.sink = s
		l.nilSink = s == nil
	}
}

// WithForwarder attaches a forwarder at construction time.
// See [Logger.AttachForwarder].
func WithForwarder(f Forwarder) Option {
	return func(l *Logger) {
		if f != nil {
			l.forwarder.Store(&forwarderRef{Forwarder: f})
		}
	}
}

// WithErrorHandler sets the function receiving local sink failures and
// forwarder panics. The default prints them to stderr.
func WithErrorHandler(fn func(error)) Option {
	return func(l *Logger) { l.errorHandler = fn }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.builder.Clock = now }
}

// WithoutRedaction keeps the values of password, token, secret, api_key and
// authorization context keys instead of replacing them.
func WithoutRedaction() Option {
	return func(l *Logger) { l.builder.Redact = false }
}

// WithGlobalLogger registers this logger's [Logger.Slog] as the global slog
// default logger. By default, loggers are not registered globally to allow
// multiple logger instances to coexist in the same process.
//
// Example:
//
//	logger := logging.MustNew(
//	    logging.WithServiceName("billing"),
//	    logging.WithGlobalLogger(), // slog.Info now produces records
//	)
func WithGlobalLogger() Option {
	return func(l *Logger) { l.registerGlobal = true }
}

// WithSampling enables log sampling to reduce volume in high-traffic scenarios.
// See [SamplingConfig] for configuration options.
func WithSampling(cfg SamplingConfig) Option {
	return func(l *Logger) { l.samplingConfig = &cfg }
}
