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
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"ctxlog.dev/ctxlog/errinfo"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorGray    = "\033[37m"
	colorWhite   = "\033[97m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

// consoleBuilderPool provides reusable [strings.Builder] instances
// for formatting console lines.
var consoleBuilderPool = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// ConsoleSink writes human-readable colored lines for development.
// Not meant for log aggregation; use [JSONSink] there.
//
// Thread-safe: Safe for concurrent use by multiple goroutines.
type ConsoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	noColor bool
}

// NewConsoleSink creates a [ConsoleSink] writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// WithoutColor disables ANSI escape sequences, for output that is not a terminal.
func (s *ConsoleSink) WithoutColor() *ConsoleSink {
	s.noColor = true
	return s
}

// Write implements [Sink].
func (s *ConsoleSink) Write(rec *Record) error {
	b := consoleBuilderPool.Get().(*strings.Builder)
	b.Reset()
	defer consoleBuilderPool.Put(b)

	// Timestamp
	s.color(b, colorDim)
	if t, err := time.Parse(errinfo.TimestampLayout, rec.Datetime); err == nil {
		b.WriteString(t.Local().Format("15:04:05.000"))
	} else {
		b.WriteString(rec.Datetime)
	}
	s.color(b, colorReset)
	b.WriteString(" ")

	// Level with color
	s.color(b, levelColor(rec.Level))
	s.color(b, colorBold)
	fmt.Fprintf(b, "%-8s", rec.Level.String())
	s.color(b, colorReset)
	b.WriteString(" ")

	// Message
	s.color(b, colorWhite)
	b.WriteString(rec.Message)
	s.color(b, colorReset)

	s.color(b, colorGray)
	b.WriteString(" [")
	b.WriteString(rec.Logger)
	b.WriteString("]")
	s.color(b, colorReset)

	if rec.Request.Method != NoneValue {
		appendAttr(b, "request", rec.Request.Method+" "+rec.Request.URI)
	}
	if rec.Request.ID != "" {
		appendAttr(b, "requestId", rec.Request.ID)
	}
	if rec.TraceID != "" {
		appendAttr(b, "traceId", rec.TraceID)
	}

	fields := acyclicMap(rec.Context)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		appendAttr(b, k, fields[k])
	}

	for info := rec.Error; info != nil; info = info.Inner {
		b.WriteString("\n    ")
		s.color(b, colorRed)
		b.WriteString(info.Type)
		b.WriteString(": ")
		b.WriteString(info.Message)
		s.color(b, colorReset)
		if info.Stacktrace != "" {
			b.WriteString("\n      ")
			s.color(b, colorDim)
			b.WriteString(strings.ReplaceAll(info.Stacktrace, "\n", "\n      "))
			s.color(b, colorReset)
		}
	}

	b.WriteString("\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, b.String())
	return err
}

func (s *ConsoleSink) color(b *strings.Builder, code string) {
	if !s.noColor {
		b.WriteString(code)
	}
}

// levelColor returns the ANSI color code for a log level.
func levelColor(level Level) string {
	switch {
	case level >= LevelCritical:
		return colorMagenta
	case level >= LevelError:
		return colorRed
	case level >= LevelWarn:
		return colorYellow
	case level >= LevelInfo:
		return colorGreen
	default:
		return colorBlue
	}
}

// appendAttr formats and appends a key=value pair.
//
// fmt.Sprint is used as a catch-all for types without specialized formatting.
func appendAttr(b *strings.Builder, key string, value any) {
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")

	switch v := value.(type) {
	case string:
		b.WriteString(v)
	case int:
		b.WriteString(strconv.Itoa(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(v, 10))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case time.Duration:
		b.WriteString(v.String())
	case time.Time:
		b.WriteString(v.Format(time.RFC3339))
	case float64:
		b.WriteString(strconv.FormatFloat(v, 'f', 2, 64))
	case error:
		b.WriteString(v.Error())
	default:
		b.WriteString(fmt.Sprint(v))
	}
}
