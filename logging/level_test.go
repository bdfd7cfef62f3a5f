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
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Ordering(t *testing.T) {
	t.Parallel()

	ordered := []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1], ordered[i])
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "TRACE", want: LevelTrace},
		{in: "debug", want: LevelDebug},
		{in: " Info ", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "WARNING", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "critical", want: LevelCritical},
		{in: "fatal", want: LevelCritical},
		{in: "verbose", want: LevelInfo, wantErr: true},
		{in: "", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidLevel))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_Text(t *testing.T) {
	t.Parallel()

	data, err := LevelWarn.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WARN", string(data))

	_, err = Level(42).MarshalText()
	require.ErrorIs(t, err, ErrInvalidLevel)
	assert.Equal(t, "LEVEL(42)", Level(42).String())

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("critical")))
	assert.Equal(t, LevelCritical, l)
	assert.Error(t, l.UnmarshalText([]byte("nope")))
}

func TestLevel_Slog(t *testing.T) {
	t.Parallel()

	for _, l := range []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical} {
		assert.Equal(t, l, FromSlogLevel(l.SlogLevel()), "round trip for %s", l)
	}

	assert.Equal(t, LevelInfo, FromSlogLevel(slog.LevelInfo+1))
	assert.Equal(t, LevelTrace, FromSlogLevel(slog.Level(-100)))
	assert.Equal(t, LevelCritical, FromSlogLevel(slog.Level(100)))
}
