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
	stderrors "errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"ctxlog.dev/ctxlog/scope"
)

func TestLogger_LogRequest(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	req := httptest.NewRequest("GET", "/api/users?page=2", nil)
	req.Header.Set("User-Agent", "test-agent")

	th.Logger.LogRequest(context.Background(), req, Fields{"status": 200})

	th.AssertLog(t, LevelInfo, "http request", map[string]any{
		"method":     "GET",
		"path":       "/api/users",
		"query":      "page=2",
		"user_agent": "test-agent",
		"status":     200,
	})
}

func TestLogger_LogError(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	th.Logger.LogError(context.Background(), errors.New("insert failed"), "database operation failed",
		Fields{"table": "users"})

	rec, err := th.LastLog()
	require.NoError(t, err)
	assert.Equal(t, LevelError, rec.Level)
	assert.Equal(t, "insert failed", rec.Error.Message)
	assert.Equal(t, map[string]any{"table": "users"}, rec.Context)
}

func TestLogger_LogDuration(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	start := time.Now().Add(-150 * time.Millisecond)
	th.Logger.LogDuration(context.Background(), "batch done", start, Fields{"rows": 10})

	rec, err := th.LastLog()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.Context["duration_ms"], 150.0)
	assert.NotEmpty(t, rec.Context["duration"])
	assert.InDelta(t, 10.0, rec.Context["rows"], 0)

	th.Reset()
	require.NoError(t, th.Logger.SetLevel(LevelWarn))
	th.Logger.LogDuration(context.Background(), "hidden", start)
	assert.Empty(t, th.Buffer.String())
}

func TestLogger_ErrorWithStack(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	plain := stderrors.New("plain error")

	th.Logger.ErrorWithStack(context.Background(), "error occurred", plain, true, Fields{"context": "test"})
	rec, err := th.LastLog()
	require.NoError(t, err)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "plain error", rec.Error.Message)
	assert.Contains(t, rec.Error.Stacktrace, "TestLogger_ErrorWithStack")
	assert.False(t, strings.Contains(rec.Error.Stacktrace, "captureStack"))
	assert.Equal(t, "test", rec.Context["context"])

	th.Reset()
	th.Logger.ErrorWithStack(context.Background(), "error occurred", plain, false)
	rec, err = th.LastLog()
	require.NoError(t, err)
	assert.Empty(t, rec.Error.Stacktrace)

	th.Reset()
	th.Logger.ErrorWithStack(context.Background(), "no error", nil, true)
	rec, err = th.LastLog()
	require.NoError(t, err)
	assert.Nil(t, rec.Error)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)

	scope.Run(context.Background(), func(ctx context.Context) {
		scope.Set(ctx, scope.KeyTraceID, "t-1")
		scope.Set(ctx, scope.KeyRequestID, "r-1")

		cl := NewContextLogger(ctx, th.Logger)
		assert.Equal(t, "t-1", cl.TraceID())
		assert.Empty(t, cl.SpanID())
		assert.Same(t, th.Logger, cl.Logger())
		assert.Equal(t, ctx, cl.Context())

		cl.Trace("t")
		cl.Debug("d")
		cl.Info("i")
		cl.Warn("w")
		cl.Error("e", Err(errors.New("x")))
		cl.Critical("c")
	})

	records, err := th.Logs()
	require.NoError(t, err)
	require.Len(t, records, 6)
	for _, rec := range records {
		assert.Equal(t, "r-1", rec.Request.ID)
		assert.Equal(t, "t-1", rec.TraceID)
	}
	assert.Equal(t, LevelCritical, records[5].Level)
}

func TestContextLogger_OTelSpan(t *testing.T) {
	t.Parallel()

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger, _ := NewTestLogger()
	cl := NewContextLogger(ctx, logger)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", cl.TraceID())
	assert.Equal(t, "b7ad6b7169203331", cl.SpanID())
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, FromContext(context.Background()))

	var nilLogger *ContextLogger
	assert.NotPanics(t, func() {
		nilLogger.Info("dropped")
		_ = nilLogger.TraceID()
		_ = nilLogger.SpanID()
		_ = nilLogger.Logger()
		_ = nilLogger.Context()
	})

	th := NewTestHelper(t)
	ctx := WithLogger(context.Background(), th.Logger)
	FromContext(ctx).Warn("found")

	assert.Equal(t, 1, th.CountLevel(LevelWarn))
}
