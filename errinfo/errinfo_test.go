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

package errinfo

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"testing"
	"time"

	crdberrors "github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Format(nil))
}

func TestFormatCauseChain(t *testing.T) {
	t.Parallel()

	root := errors.New("connection refused")
	mid := fmt.Errorf("query users: %w", root)
	top := fmt.Errorf("load profile: %w", mid)

	info := Format(top)
	require.NotNil(t, info)

	assert.Equal(t, top.Error(), info.Message)
	assert.Equal(t, "fmt.wrapError", info.Type)

	require.NotNil(t, info.Inner)
	assert.Equal(t, mid.Error(), info.Inner.Message)
	assert.Equal(t, "fmt.wrapError", info.Inner.Type)

	require.NotNil(t, info.Inner.Inner)
	assert.Equal(t, "connection refused", info.Inner.Inner.Message)
	assert.Equal(t, "errors.errorString", info.Inner.Inner.Type)
	assert.Nil(t, info.Inner.Inner.Inner)

	assert.Equal(t, 3, info.Depth())
}

func TestFormatLegacyCause(t *testing.T) {
	t.Parallel()

	info := Format(&legacyCauser{msg: "outer", cause: errors.New("inner")})
	require.NotNil(t, info.Inner)
	assert.Equal(t, "inner", info.Inner.Message)
}

func TestFormatStructFields(t *testing.T) {
	t.Parallel()

	err := &fs.PathError{Op: "open", Path: "/etc/app.yaml", Err: fs.ErrNotExist}

	info := Format(err)
	assert.Equal(t, "fs.PathError", info.Type)
	assert.Equal(t, map[string]any{"Op": "open", "Path": "/etc/app.yaml"}, info.Data)
	require.NotNil(t, info.Inner)
	assert.Equal(t, fs.ErrNotExist.Error(), info.Inner.Message)
}

func TestFormatJSONTagsAndReservedFields(t *testing.T) {
	t.Parallel()

	err := &quotaError{
		Tenant:  "acme",
		Limit:   10,
		Secret:  "hunter2",
		Message: "ignored",
		Cause:   errors.New("limit reached"),
		private: "hidden",
	}

	info := Format(err)
	assert.Equal(t, "quota exceeded", info.Message)
	assert.Equal(t, map[string]any{"tenant": "acme", "limit": 10}, info.Data)
	require.NotNil(t, info.Inner)
	assert.Equal(t, "limit reached", info.Inner.Message)
}

func TestFormatCapabilities(t *testing.T) {
	t.Parallel()

	err := &testErrorFull{
		message: "invalid input",
		code:    "VALIDATION_FAILED",
		status:  http.StatusBadRequest,
		details: map[string]any{"field": "email"},
	}

	info := Format(err)
	assert.Equal(t, "VALIDATION_FAILED", info.Data["code"])
	assert.Equal(t, http.StatusBadRequest, info.Data["status"])
	assert.Equal(t, map[string]any{"field": "email"}, info.Data["details"])
}

func TestFormatNoDataOmitsMap(t *testing.T) {
	t.Parallel()

	info := Format(errors.New("plain"))
	assert.Nil(t, info.Data)

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"plain","type":"errors.errorString"}`, string(out))
}

func TestFormatStackTrace(t *testing.T) {
	t.Parallel()

	t.Run("pkg errors", func(t *testing.T) {
		t.Parallel()

		info := Format(pkgerrors.New("boom"))
		assert.Equal(t, "boom", info.Message)
		assert.Contains(t, info.Stacktrace, "TestFormatStackTrace")
		assert.False(t, strings.HasPrefix(info.Stacktrace, "\n"))
	})

	t.Run("stack-only wrapper is folded", func(t *testing.T) {
		t.Parallel()

		base := errors.New("disk full")
		info := Format(pkgerrors.WithStack(base))

		assert.Equal(t, "disk full", info.Message)
		assert.Equal(t, "errors.errorString", info.Type)
		assert.Contains(t, info.Stacktrace, "TestFormatStackTrace")
		assert.Nil(t, info.Inner)
	})

	t.Run("wrap keeps message level", func(t *testing.T) {
		t.Parallel()

		info := Format(pkgerrors.Wrap(errors.New("eof"), "read header"))
		assert.Equal(t, "read header: eof", info.Message)
		assert.NotEmpty(t, info.Stacktrace)
		require.NotNil(t, info.Inner)
		assert.Equal(t, "eof", info.Inner.Message)
	})
}

type opError struct{ err error }

func (e opError) Error() string { return e.err.Error() }
func (e opError) Unwrap() error { return e.err }

type retryError struct{ err error }

func (e *retryError) Error() string { return e.err.Error() }
func (e *retryError) Unwrap() error { return e.err }

func TestFormatDelegatingWrappersKeepLevels(t *testing.T) {
	t.Parallel()

	err := &retryError{err: opError{err: errors.New("db down")}}

	info := Format(err)
	require.NotNil(t, info)
	assert.Equal(t, 3, info.Depth())

	assert.Equal(t, "errinfo.retryError", info.Type)
	assert.Equal(t, "db down", info.Message)
	require.NotNil(t, info.Inner)
	assert.Equal(t, "errinfo.opError", info.Inner.Type)
	assert.Equal(t, "db down", info.Inner.Message)
	require.NotNil(t, info.Inner.Inner)
	assert.Equal(t, "errors.errorString", info.Inner.Inner.Type)
	assert.Nil(t, info.Inner.Inner.Inner)

	t.Run("stack wrapper inside custom wrapper", func(t *testing.T) {
		t.Parallel()

		info := Format(&retryError{err: pkgerrors.WithStack(errors.New("db down"))})
		require.Equal(t, 2, info.Depth())
		assert.Equal(t, "errinfo.retryError", info.Type)
		assert.Equal(t, "errors.errorString", info.Inner.Type)
		assert.Contains(t, info.Inner.Stacktrace, "TestFormatDelegatingWrappersKeepLevels")
	})
}

func TestFormatCockroachHints(t *testing.T) {
	t.Parallel()

	err := crdberrors.WithHint(crdberrors.New("broker unreachable"), "check the brokers setting")

	info := Format(err)
	assert.Equal(t, "broker unreachable", info.Message)
	assert.Equal(t, []string{"check the brokers setting"}, info.Data["hints"])
	assert.NotEmpty(t, info.Stacktrace)
}

func TestFormatJoined(t *testing.T) {
	t.Parallel()

	err := errors.Join(errors.New("first"), nil, errors.New("second"))

	info := Format(err)
	list, ok := info.Data["errors"].([]*ErrorInfo)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Message)
	assert.Equal(t, "second", list[1].Message)
}

func TestFormatCycle(t *testing.T) {
	t.Parallel()

	t.Run("two errors", func(t *testing.T) {
		t.Parallel()

		a := &cycleError{name: "a"}
		b := &cycleError{name: "b", next: a}
		a.next = b

		info := Format(a)
		require.NotNil(t, info.Inner)
		assert.Equal(t, "b", info.Inner.Message)
		assert.Nil(t, info.Inner.Inner)
		assert.Equal(t, true, info.Inner.Data["truncated"])
	})

	t.Run("self reference", func(t *testing.T) {
		t.Parallel()

		a := &cycleError{name: "a"}
		a.next = a

		info := Format(a)
		assert.Equal(t, "a", info.Message)
		assert.Nil(t, info.Inner)
		assert.Equal(t, true, info.Data["truncated"])
	})
}

func TestFormatDepthLimit(t *testing.T) {
	t.Parallel()

	var err error = errors.New("root")
	for i := range 100 {
		err = fmt.Errorf("level %d: %w", i, err)
	}

	info := Format(err)
	assert.Equal(t, MaxDepth, info.Depth())

	last := info
	for last.Inner != nil {
		last = last.Inner
	}
	assert.Equal(t, true, last.Data["truncated"])
}

func TestFormatPanickingError(t *testing.T) {
	t.Parallel()

	var info *ErrorInfo
	require.NotPanics(t, func() {
		info = Format(fmt.Errorf("wrapped: %w", panicError{}))
	})
	require.NotNil(t, info.Inner)
	assert.Contains(t, info.Inner.Message, "PANIC")
	assert.Equal(t, "errinfo.panicError", info.Inner.Type)
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	pre := &ErrorInfo{Message: "pre", Type: "custom"}

	tests := []struct {
		name    string
		value   any
		message string
		typ     string
	}{
		{name: "error", value: errors.New("e"), message: "e", typ: "errors.errorString"},
		{name: "pointer info", value: pre, message: "pre", typ: "custom"},
		{name: "info value", value: *pre, message: "pre", typ: "custom"},
		{name: "string", value: "text", message: "text", typ: "string"},
		{name: "other", value: 42, message: "42", typ: "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := FromValue(tt.value)
			require.NotNil(t, info)
			assert.Equal(t, tt.message, info.Message)
			assert.Equal(t, tt.typ, info.Type)
		})
	}

	assert.Nil(t, FromValue(nil))
	assert.Same(t, pre, FromValue(pre))
}

func TestClone(t *testing.T) {
	t.Parallel()

	orig := Format(&fs.PathError{Op: "stat", Path: "/tmp", Err: errors.New("denied")})
	clone := orig.Clone()

	clone.Data["Op"] = "changed"
	clone.Inner.Message = "changed"

	assert.Equal(t, "stat", orig.Data["Op"])
	assert.Equal(t, "denied", orig.Inner.Message)
	assert.Nil(t, (*ErrorInfo)(nil).Clone())
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("CET", 3600))
	assert.Equal(t, "2025-03-04T04:06:07.890Z", Timestamp(ts))
}
