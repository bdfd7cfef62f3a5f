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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// spanning starts a server span around next, the way an OpenTelemetry HTTP
// instrumentation placed outside the middleware would.
func spanning(tp *sdktrace.TracerProvider, next http.Handler) http.Handler {
	tracer := tp.Tracer("ctxlog.dev/ctxlog/middleware/test")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestNew_SDKSpanSuppliesIDs(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	logger, sink := newRecordingLogger(t)
	h := spanning(tp, New(logger, WithIDGenerator(sequence()))(logHandler("inside span")))

	req := httptest.NewRequest(http.MethodGet, "/spans", nil)
	req.Header.Set(HeaderTraceID, "ignored")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	sc := spans[0].SpanContext()

	assert.Equal(t, sc.TraceID().String(), rec.Header().Get(HeaderTraceID))
	records := sink.Records()
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, sc.TraceID().String(), r.TraceID)
		assert.Equal(t, sc.SpanID().String(), r.SpanID)
		assert.Equal(t, "id-1", r.Request.ID)
	}
}

func TestNew_TraceparentParentsSDKSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tp.Tracer("ctxlog.dev/ctxlog/middleware/test")

	h := New(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "child")
		span.End()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
	assert.True(t, spans[0].Parent().IsRemote())
}
