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
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

// Format selects the built-in local sink.
type Format string

const (
	// FormatJSON writes one JSON record per line.
	FormatJSON Format = "json"
	// FormatConsole writes human-readable colored lines.
	FormatConsole Format = "console"
)

// Forwarder receives records after they were written locally, typically to
// ship them to a remote broker.
//
// Log must not block on I/O and must not panic; records it receives are
// shared and must not be modified.
type Forwarder interface {
	// Log hands a record over for delivery.
	Log(ctx context.Context, rec *Record)
	// MinLevel is the lowest level the forwarder accepts.
	MinLevel() Level
	// Close delivers what is still pending and releases resources.
	Close(ctx context.Context) error
}

// SamplingConfig configures log sampling to reduce volume in high-traffic scenarios.
//
// Sampling algorithm:
//  1. Log the first 'Initial' entries unconditionally (e.g., first 100)
//  2. After that, log 1 in every 'Thereafter' entries (e.g., 1 in 100)
//  3. Reset the counter every 'Tick' interval to avoid indefinite accumulation
//
// ERROR and CRITICAL records are never sampled out.
type SamplingConfig struct {
	Initial    int           // Log first N occurrences unconditionally
	Thereafter int           // After Initial, log 1 of every M entries (0 = log all)
	Tick       time.Duration // Reset sampling counter every interval (0 = never reset)
}

type forwarderRef struct {
	Forwarder
}

// Logger is the per-call-site API. Each call builds one [Record], writes it to
// the local sink and hands it to the attached [Forwarder] when its level
// clears the forwarder's minimum.
//
// Log calls never return errors and never panic. Local sink failures are
// passed to the error handler (see [WithErrorHandler]).
//
// Thread-safety: All public methods are safe for concurrent use.
type Logger struct {
	builder Builder

	// Local output
	format Format
	output io.Writer
	sink   Sink

	nilSink bool

	level     atomic.Int32
	forwarder atomic.Pointer[forwarderRef]

	errorHandler func(error)

	// Sampling
	samplingConfig *SamplingConfig
	sampleCounter  atomic.Int64
	sampleTicker   *time.Ticker
	sampleStop     chan struct{}

	registerGlobal bool
	initialLevel   Level

	slogOnce sync.Once
	slogger  *slog.Logger

	mu     sync.Mutex // Protects Close
	closed atomic.Bool
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

func defaultLogger() *Logger {
	return &Logger{
		builder: Builder{
			Name:          DefaultLoggerName,
			SchemaVersion: DefaultSchemaVersion,
			Redact:        true,
		},
		format:       FormatJSON,
		output:       os.Stdout,
		initialLevel: LevelTrace,
	}
}

// New creates a new Logger with the given options.
//
// By default records are written as JSON lines to stdout, every level is
// enabled and no forwarder is attached. The logger does not register itself
// as the slog default unless [WithGlobalLogger] is passed.
func New(opts ...Option) (*Logger, error) {
	l := defaultLogger()

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if err := l.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	l.initialize()
	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return l
}

// Validate checks if the configuration is valid.
func (l *Logger) Validate() error {
	if !l.initialLevel.Valid() {
		return errors.Wrapf(ErrInvalidLevel, "level %d", int8(l.initialLevel))
	}
	if l.samplingConfig != nil {
		if l.samplingConfig.Initial < 0 || l.samplingConfig.Thereafter < 0 {
			return errors.New("sampling config values must be non-negative")
		}
	}
	if l.nilSink {
		return ErrNilSink
	}
	if l.sink != nil {
		return nil
	}
	if l.output == nil {
		return ErrNilOutput
	}
	switch l.format {
	case FormatJSON, FormatConsole:
		return nil
	default:
		return errors.Wrapf(ErrInvalidFormat, "%q", l.format)
	}
}

func (l *Logger) initialize() {
	l.level.Store(int32(l.initialLevel))

	if l.sink == nil {
		switch l.format {
		case FormatConsole:
			l.sink = NewConsoleSink(l.output)
		default:
			l.sink = NewJSONSink(l.output)
		}
	}

	if l.errorHandler == nil {
		l.errorHandler = func(err error) {
			fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		}
	}

	if l.samplingConfig != nil && l.samplingConfig.Tick > 0 {
		l.sampleStop = make(chan struct{})
		l.sampleTicker = time.NewTicker(l.samplingConfig.Tick)
		go l.samplingResetter()
	}

	if l.registerGlobal {
		slog.SetDefault(l.Slog())
	}
}

// samplingResetter resets the sampling counter periodically.
func (l *Logger) samplingResetter() {
	for {
		select {
		case <-l.sampleTicker.C:
			l.sampleCounter.Store(0)
		case <-l.sampleStop:
			return
		}
	}
}

// shouldSample determines if a record should be kept under the sampling policy.
// Errors bypass sampling so critical issues are never dropped.
func (l *Logger) shouldSample(level Level) bool {
	if level >= LevelError || l.samplingConfig == nil {
		return true
	}

	count := l.sampleCounter.Add(1)
	if count <= int64(l.samplingConfig.Initial) {
		return true
	}
	if l.samplingConfig.Thereafter == 0 {
		return true
	}
	return (count-int64(l.samplingConfig.Initial))%int64(l.samplingConfig.Thereafter) == 0
}

// Builder returns a copy of the builder used for this logger's records.
func (l *Logger) Builder() Builder {
	return l.builder
}

// Forwarder returns the attached forwarder, or nil.
func (l *Logger) Forwarder() Forwarder {
	if ref := l.forwarder.Load(); ref != nil {
		return ref.Forwarder
	}
	return nil
}

// AttachForwarder attaches f, replacing any previous forwarder. The previous
// forwarder is returned so the caller can close it; Close only closes the
// forwarder attached at that time.
func (l *Logger) AttachForwarder(f Forwarder) Forwarder {
	if l.closed.Load() {
		l.handleError(ErrLoggerClosed)
	}
	var prev *forwarderRef
	if f == nil {
		prev = l.forwarder.Swap(nil)
	} else {
		prev = l.forwarder.Swap(&forwarderRef{Forwarder: f})
	}
	if prev == nil {
		return nil
	}
	return prev.Forwarder
}

// Enabled reports whether a record at level would be written locally or forwarded.
func (l *Logger) Enabled(level Level) bool {
	if l.closed.Load() {
		return false
	}
	if level >= l.Level() {
		return true
	}
	fwd := l.Forwarder()
	return fwd != nil && level >= fwd.MinLevel()
}

// log is the internal helper that handles common logging logic.
//
// This method consolidates:
//   - Closed check (atomic.Bool load)
//   - Level checks for the local sink and the forwarder
//   - Sampling decision
//
// Details are only merged and the record only built when at least one
// destination accepts the level.
func (l *Logger) log(ctx context.Context, level Level, msg string, details []Detail) {
	l.logFields(ctx, level, msg, collect(details))
}

func (l *Logger) logFields(ctx context.Context, level Level, msg string, fields map[string]any) {
	if l.closed.Load() {
		return
	}

	local := level >= l.Level()
	fwd := l.Forwarder()
	remote := fwd != nil && level >= fwd.MinLevel()
	if !local && !remote {
		return
	}
	if !l.shouldSample(level) {
		return
	}

	rec := l.builder.Build(ctx, level, msg, fields)

	if local {
		if err := l.sink.Write(rec); err != nil {
			l.handleError(err)
		}
	}
	if remote {
		l.forward(ctx, fwd, rec)
	}
}

func (l *Logger) forward(ctx context.Context, fwd Forwarder, rec *Record) {
	defer func() {
		if r := recover(); r != nil {
			l.handleError(errors.Newf("forwarder panic: %v", r))
		}
	}()
	fwd.Log(ctx, rec)
}

func (l *Logger) handleError(err error) {
	defer func() { _ = recover() }()
	l.errorHandler(err)
}

// Trace logs at TRACE level.
func (l *Logger) Trace(ctx context.Context, msg string, details ...Detail) {
	l.log(ctx, LevelTrace, msg, details)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(ctx context.Context, msg string, details ...Detail) {
	l.log(ctx, LevelDebug, msg, details)
}

// Info logs at INFO level.
func (l *Logger) Info(ctx context.Context, msg string, details ...Detail) {
	l.log(ctx, LevelInfo, msg, details)
}

// Warn logs at WARN level.
func (l *Logger) Warn(ctx context.Context, msg string, details ...Detail) {
	l.log(ctx, LevelWarn, msg, details)
}

// Error logs at ERROR level. Pass [Err] to attach the error being reported.
func (l *Logger) Error(ctx context.Context, msg string, details ...Detail) {
	l.log(ctx, LevelError, msg, details)
}

// Critical logs at CRITICAL level. Pass [Err] to attach the error being reported.
func (l *Logger) Critical(ctx context.Context, msg string, details ...Detail) {
	l.log(ctx, LevelCritical, msg, details)
}

// Log logs at the given level.
func (l *Logger) Log(ctx context.Context, level Level, msg string, details ...Detail) {
	l.log(ctx, level, msg, details)
}

// Close closes the attached forwarder, which delivers what is still pending.
// Later log calls are dropped. Calling Close more than once is harmless.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	if l.sampleTicker != nil {
		l.sampleTicker.Stop()
		close(l.sampleStop)
	}

	if fwd := l.Forwarder(); fwd != nil {
		return fwd.Close(ctx)
	}
	return nil
}

// SetLevel changes the minimum level for the local sink at runtime. The
// forwarder keeps its own minimum.
func (l *Logger) SetLevel(level Level) error {
	if !level.Valid() {
		return errors.Wrapf(ErrInvalidLevel, "level %d", int8(level))
	}
	l.level.Store(int32(level))
	return nil
}

// Level returns the current minimum level for the local sink.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// Name returns the logger name.
func (l *Logger) Name() string {
	return l.builder.name()
}

// Service returns the service metadata stamped on records.
func (l *Logger) Service() ServiceInfo {
	return l.builder.Service
}

// IsEnabled returns true if the logger has not been closed.
func (l *Logger) IsEnabled() bool {
	return !l.closed.Load()
}

// DebugInfo returns diagnostic information about the logger.
func (l *Logger) DebugInfo() map[string]any {
	info := map[string]any{
		"format":          string(l.format),
		"level":           l.Level().String(),
		"logger":          l.builder.name(),
		"schema_version":  l.builder.schemaVersion(),
		"service_name":    l.builder.Service.Name,
		"service_version": l.builder.Service.Version,
		"environment":     l.builder.Service.Environment,
		"redact":          l.builder.Redact,
		"is_closed":       l.closed.Load(),
		"has_forwarder":   l.Forwarder() != nil,
	}

	if fwd := l.Forwarder(); fwd != nil {
		info["forwarder_min_level"] = fwd.MinLevel().String()
	}

	if l.samplingConfig != nil {
		info["sampling"] = map[string]any{
			"initial":    l.samplingConfig.Initial,
			"thereafter": l.samplingConfig.Thereafter,
			"tick":       l.samplingConfig.Tick.String(),
			"counter":    l.sampleCounter.Load(),
		}
	}

	return info
}
