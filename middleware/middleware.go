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

package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ctxlog.dev/ctxlog/logging"
	"ctxlog.dev/ctxlog/scope"
)

// Header names read from requests and echoed on responses.
const (
	HeaderRequestID    = "X-Request-Id"
	HeaderTraceID      = "X-Trace-Id"
	HeaderSpanID       = "X-Span-Id"
	HeaderSourceSystem = "Source-System"
	HeaderBaggage      = "Baggage"
)

var propagator = propagation.TraceContext{}

// New returns net/http middleware that runs every request inside its own
// context scope.
//
// Per request it populates the well-known scope keys, echoes the request and
// trace ids as response headers, attaches logger to the request context
// (retrieve it with [logging.FromContext]) and logs the start and the
// completion of the request. The completion record is written exactly once,
// whether the handler returns, panics or the client goes away first.
//
// A nil logger still scopes requests but logs nothing.
func New(logger *logging.Logger, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, end := scope.Begin(r.Context())
			defer end()

			ids := cfg.resolveIDs(ctx, r)
			w.Header().Set(cfg.requestIDHeader, ids.requestID)
			w.Header().Set(HeaderTraceID, ids.traceID)
			cfg.populate(ctx, r, ids)

			if ids.remote.IsValid() {
				ctx = trace.ContextWithRemoteSpanContext(ctx, ids.remote)
			}
			if logger == nil {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			ctx = logging.WithLogger(ctx, logger)
			r = r.WithContext(ctx)

			if cfg.excludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			target := r.URL.RequestURI()
			if cfg.logRequests {
				logger.Info(ctx, fmt.Sprintf("Request started: %s %s", r.Method, target))
			}
			if !cfg.logResponses {
				next.ServeHTTP(w, r)
				return
			}

			rw := &responseWriter{ResponseWriter: w}
			c := &completion{
				logger: logger,
				ctx:    ctx,
				method: r.Method,
				target: target,
				start:  time.Now(),
				rw:     rw,
			}
			c.serve(next, rw, r)
		})
	}
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomePanic
	outcomeAborted
)

// completion writes the single completion record of one request.
type completion struct {
	logger *logging.Logger
	ctx    context.Context
	method string
	target string
	start  time.Time
	rw     *responseWriter
	logged atomic.Bool
}

func (c *completion) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	stop := context.AfterFunc(r.Context(), func() {
		c.finish(outcomeAborted, nil)
	})
	defer stop()

	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				c.finish(outcomeAborted, nil)
			} else {
				c.finish(outcomePanic, panicError(p))
			}
			panic(p)
		}
		c.finish(outcomeDone, nil)
	}()

	next.ServeHTTP(w, r)
}

func (c *completion) finish(o outcome, err error) {
	if !c.logged.CompareAndSwap(false, true) {
		return
	}

	status := c.rw.StatusCode()
	if o == outcomePanic && !c.rw.Written() {
		status = http.StatusInternalServerError
	}
	took := time.Since(c.start)
	fields := logging.Fields{
		"statusCode": status,
		"duration":   took.Milliseconds(),
		"path":       c.target,
	}

	switch o {
	case outcomePanic:
		c.logger.Error(c.ctx, fmt.Sprintf("Request error: %s %s", c.method, c.target), fields, logging.Err(err))
	case outcomeAborted:
		fields["aborted"] = true
		c.logger.Warn(c.ctx, fmt.Sprintf("Request aborted: %s %s", c.method, c.target), fields)
	default:
		msg := fmt.Sprintf("Request completed: %s %s %d %dms", c.method, c.target, status, took.Milliseconds())
		if status >= http.StatusBadRequest {
			c.logger.Error(c.ctx, msg, fields)
			return
		}
		c.logger.Info(c.ctx, msg, fields)
	}
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return errors.Wrap(err, "handler panicked")
	}
	return errors.Newf("handler panicked: %v", p)
}

type requestIDs struct {
	requestID string
	traceID   string
	spanID    string
	// remote is the caller's span context from a traceparent header
	remote trace.SpanContext
}

// resolveIDs picks trace and span ids from, in order: a span already active
// in ctx, a W3C traceparent header, the X-Trace-Id/X-Span-Id headers. Without
// any of them the trace id is the request id and the span id is fresh.
func (c *config) resolveIDs(ctx context.Context, r *http.Request) requestIDs {
	ids := requestIDs{requestID: strings.TrimSpace(r.Header.Get(c.requestIDHeader))}
	if ids.requestID == "" {
		ids.requestID = c.generator()
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ids.traceID = sc.TraceID().String()
		ids.spanID = sc.SpanID().String()
		return ids
	}

	remote := trace.SpanContextFromContext(propagator.Extract(ctx, propagation.HeaderCarrier(r.Header)))
	if remote.IsValid() {
		ids.remote = remote
		ids.traceID = remote.TraceID().String()
		ids.spanID = remote.SpanID().String()
		return ids
	}

	ids.traceID = r.Header.Get(HeaderTraceID)
	if ids.traceID == "" {
		ids.traceID = ids.requestID
	}
	ids.spanID = r.Header.Get(HeaderSpanID)
	if ids.spanID == "" {
		ids.spanID = c.generator()
	}
	return ids
}

func (c *config) populate(ctx context.Context, r *http.Request, ids requestIDs) {
	set := func(key scope.Key, value string) {
		if value != "" {
			scope.Set(ctx, key, value)
		}
	}

	set(scope.KeyRequestID, ids.requestID)
	set(scope.KeyTraceID, ids.traceID)
	set(scope.KeySpanID, ids.spanID)
	set(scope.KeyMethod, r.Method)
	set(scope.KeyURI, c.scheme(r)+"://"+r.Host+r.URL.RequestURI())
	set(scope.KeyClientIP, c.clientIP(r))
	set(scope.KeySourceSystem, r.Header.Get(HeaderSourceSystem))
	set(scope.KeyBaggage, r.Header.Get(HeaderBaggage))

	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		if host, port, err := net.SplitHostPort(addr.String()); err == nil {
			set(scope.KeyServiceIP, host)
			set(scope.KeyServicePort, port)
		}
	}
}

func (c *config) scheme(r *http.Request) string {
	if c.trustProxy {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			return strings.ToLower(strings.TrimSpace(proto))
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func (c *config) clientIP(r *http.Request) string {
	if c.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
