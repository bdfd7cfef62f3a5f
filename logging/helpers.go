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
	"net/http"
	"runtime"
	"slices"
	"strings"
	"time"

	"ctxlog.dev/ctxlog/errinfo"
)

// LogRequest logs an HTTP request at INFO with standard fields.
//
// Standard fields included:
//   - method: HTTP method (GET, POST, etc.)
//   - path: Request path (without query string)
//   - remote: Client remote address
//   - user_agent: Client User-Agent header
//   - query: Query string (only if non-empty)
//
// Example:
//
//	logger.LogRequest(ctx, r, logging.Fields{"status": 200, "duration_ms": 45})
func (l *Logger) LogRequest(ctx context.Context, r *http.Request, details ...Detail) {
	if !l.Enabled(LevelInfo) {
		return
	}

	fields := Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote":     r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}
	if r.URL.RawQuery != "" {
		fields["query"] = r.URL.RawQuery
	}
	l.log(ctx, LevelInfo, "http request", prepend(fields, details))
}

// LogError logs err at ERROR with additional context fields.
//
// Example:
//
//	if err := db.Insert(user); err != nil {
//	    logger.LogError(ctx, err, "database operation failed",
//	        logging.Fields{"operation": "INSERT", "table": "users"},
//	    )
//	    return err
//	}
func (l *Logger) LogError(ctx context.Context, err error, msg string, details ...Detail) {
	l.log(ctx, LevelError, msg, append(slices.Clip(details), Err(err)))
}

// LogDuration logs an operation duration at INFO.
//
// Automatically includes:
//   - duration_ms: Duration in milliseconds (for easy filtering/alerting)
//   - duration: Human-readable duration string (e.g., "1.5s", "250ms")
func (l *Logger) LogDuration(ctx context.Context, msg string, start time.Time, details ...Detail) {
	if !l.Enabled(LevelInfo) {
		return
	}

	duration := time.Since(start)
	fields := Fields{
		"duration_ms": duration.Milliseconds(),
		"duration":    duration.String(),
	}
	l.log(ctx, LevelInfo, msg, prepend(fields, details))
}

// ErrorWithStack logs err at ERROR. With includeStack, the call site's stack
// is recorded on the outermost error level unless the error already carries
// its own creation stack.
//
// When to use stack traces:
//
//	✓ Critical errors that require debugging
//	✓ Unexpected error conditions (panics, invariant violations)
//	✗ Expected errors (validation failures, not found)
//	✗ High-frequency errors where stack capture cost is undesirable
func (l *Logger) ErrorWithStack(ctx context.Context, msg string, err error, includeStack bool, details ...Detail) {
	if !l.Enabled(LevelError) {
		return
	}

	info := errinfo.Format(err)
	if info != nil && includeStack && info.Stacktrace == "" {
		info.Stacktrace = captureStack(3)
	}
	if info == nil {
		l.log(ctx, LevelError, msg, details)
		return
	}
	l.log(ctx, LevelError, msg, append(slices.Clip(details), Fields{ErrorKey: info}))
}

func prepend(d Detail, details []Detail) []Detail {
	out := make([]Detail, 0, len(details)+1)
	out = append(out, d)
	return append(out, details...)
}

// captureStack captures a stack trace.
//
// Skip parameter: Number of stack frames to skip.
//   - 0: includes runtime.Callers itself
//   - 3: typical value to skip captureStack, ErrorWithStack, and runtime.Callers
func captureStack(skip int) string {
	var buf strings.Builder
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
