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
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxlog.dev/ctxlog/scope"
)

func TestSlog_Bridge(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t, WithLevel(LevelDebug))
	sl := th.Logger.Slog()
	assert.Same(t, sl, th.Logger.Slog(), "slog logger is cached")

	scope.Run(context.Background(), func(ctx context.Context) {
		scope.Set(ctx, scope.KeyRequestID, "req-9")
		sl.InfoContext(ctx, "via slog", "user", "ann", "error", errors.New("oops"))
	})

	rec, err := th.LastLog()
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, rec.Level)
	assert.Equal(t, "via slog", rec.Message)
	assert.Equal(t, "req-9", rec.Request.ID)
	assert.Equal(t, map[string]any{"user": "ann"}, rec.Context)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "oops", rec.Error.Message)
}

func TestSlog_Levels(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t, WithLevel(LevelInfo))
	sl := th.Logger.Slog()
	ctx := context.Background()

	assert.False(t, sl.Enabled(ctx, slog.LevelDebug))
	assert.True(t, sl.Enabled(ctx, slog.LevelWarn))

	sl.Log(ctx, LevelCritical.SlogLevel(), "critical via slog")
	rec, err := th.LastLog()
	require.NoError(t, err)
	assert.Equal(t, LevelCritical, rec.Level)
}

func TestSlog_AttrsAndGroups(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	sl := th.Logger.Slog().
		With("component", "db").
		WithGroup("query").
		With("table", "users")

	sl.Info("slow query", "ms", 1200, slog.Group("plan", "index", "pk"))

	rec, err := th.LastLog()
	require.NoError(t, err)
	assert.Equal(t, "db", rec.Context["component"])
	query, ok := rec.Context["query"].(map[string]any)
	require.True(t, ok, "context %v", rec.Context)
	assert.Equal(t, "users", query["table"])
	assert.InDelta(t, 1200.0, query["ms"], 0)
	assert.Equal(t, map[string]any{"index": "pk"}, query["plan"])
}

func TestSlog_GroupedErrorIsLifted(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	th.Logger.Slog().WithGroup("g").Error("failed", "error", errors.New("inner"), "k", "v")

	rec, err := th.LastLog()
	require.NoError(t, err)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "inner", rec.Error.Message)
	assert.Equal(t, map[string]any{"g": map[string]any{"k": "v"}}, rec.Context)
}

func TestSlog_EmptyKeysAndGroups(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	sl := th.Logger.Slog().WithGroup("")
	sl.Info("m", slog.Any("", "dropped"), slog.Group("empty"), slog.Group("", "inline", true))

	rec, err := th.LastLog()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"inline": true}, rec.Context)
}

func TestWithGlobalLogger(t *testing.T) {
	// Not parallel: replaces the process-wide slog default.
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	th := NewTestHelper(t, WithGlobalLogger())
	slog.Warn("through the default logger")

	assert.True(t, th.ContainsLog("through the default logger"))
}

func TestSlog_GroupWithoutAttrsOmitted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		log  func(sl *slog.Logger)
		want map[string]any
	}{
		{
			name: "open group only",
			log:  func(sl *slog.Logger) { sl.WithGroup("g").Info("m") },
			want: nil,
		},
		{
			name: "nested open groups after attrs",
			log:  func(sl *slog.Logger) { sl.With("a", "b").WithGroup("g").WithGroup("h").Info("m") },
			want: map[string]any{"a": "b"},
		},
		{
			name: "group holding only an error",
			log:  func(sl *slog.Logger) { sl.WithGroup("g").Error("m", "error", errors.New("boom")) },
			want: nil,
		},
		{
			name: "group holding only an empty group",
			log:  func(sl *slog.Logger) { sl.WithGroup("g").Info("m", slog.Group("empty")) },
			want: nil,
		},
		{
			name: "nested groups with attrs",
			log:  func(sl *slog.Logger) { sl.WithGroup("g").WithGroup("h").Info("m", "k", "v") },
			want: map[string]any{"g": map[string]any{"h": map[string]any{"k": "v"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			th := NewTestHelper(t)
			tt.log(th.Logger.Slog())

			rec, err := th.LastLog()
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, rec.Context)
				return
			}
			assert.Equal(t, tt.want, rec.Context)
		})
	}
}
