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
package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"ctxlog.dev/ctxlog/config"
	"ctxlog.dev/ctxlog/logging"
	"ctxlog.dev/ctxlog/middleware"
)

func TestPrintBanner(t *testing.T) {
	t.Parallel()

	settings := &config.Settings{}
	settings.Service.Name = "billing"
	settings.Service.Version = "2.0.0"
	settings.Logger.Format = logging.FormatJSON
	settings.Kafka.Brokers = []string{"kafka-1:9092"}
	settings.Kafka.Topic = "service-logs"

	tests := []struct {
		name        string
		kafka       bool
		tracing     bool
		contains    []string
		notContains []string
	}{
		{
			name:        "kafka disabled",
			contains:    []string{"Service", "2.0.0", "http://0.0.0.0:8080", "Disabled"},
			notContains: []string{"service-logs"},
		},
		{
			name:     "kafka and tracing enabled",
			kafka:    true,
			tracing:  true,
			contains: []string{"kafka-1:9092 -> service-logs", "stdout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := *settings
			s.Kafka.Enabled = tt.kafka

			var buf bytes.Buffer
			printBanner(&buf, nil, bannerInfo{addr: ":8080", settings: &s, tracing: tt.tracing})

			out := buf.String()
			assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestDisplayAddr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://0.0.0.0:8080", displayAddr(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", displayAddr("127.0.0.1:9000"))
	assert.Equal(t, 60, ruleWidth(&bytes.Buffer{}))
}

func TestWithServerSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	router, sink := newTestRouter(t)
	h := withServerSpan(tp, router)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello/ada", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /hello/ada", spans[0].Name())

	traceID := spans[0].SpanContext().TraceID().String()
	assert.Equal(t, traceID, rec.Header().Get(middleware.HeaderTraceID))
	for _, r := range sink.Records() {
		assert.Equal(t, traceID, r.TraceID)
	}
}

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tp, err := newTracerProvider(&buf, logging.ServiceInfo{Name: "billing", Version: "1.2.3", Environment: "test"})
	require.NoError(t, err)

	_, span := tp.Tracer(tracerName).Start(context.Background(), "unit")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "\"Name\": \"unit\"")
	assert.Contains(t, buf.String(), "billing")
}
