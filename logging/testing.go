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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// FixedClock returns a clock for [WithClock] that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// NewTestLogger creates a [Logger] for testing with an in-memory buffer.
// The returned buffer can be used with [ParseRecords] to inspect log output.
func NewTestLogger(opts ...Option) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	base := []Option{
		WithJSONSink(),
		WithOutput(buf),
		WithLevel(LevelTrace),
	}
	return MustNew(append(base, opts...)...), buf
}

// ParseRecords parses JSON lines from buf. The buffer is not consumed.
// Numbers in contexts decode as float64.
func ParseRecords(buf *bytes.Buffer) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, errors.Wrapf(err, "parse line %q", scanner.Text())
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// TestHelper provides utilities for testing with the logging package.
type TestHelper struct {
	Logger *Logger
	Buffer *bytes.Buffer
}

// NewTestHelper creates a [TestHelper] with in-memory logging. The logger is
// closed when the test ends.
func NewTestHelper(t *testing.T, opts ...Option) *TestHelper {
	t.Helper()

	logger, buf := NewTestLogger(opts...)
	t.Cleanup(func() { _ = logger.Close(context.Background()) })

	return &TestHelper{
		Logger: logger,
		Buffer: buf,
	}
}

// Logs returns all parsed records.
func (th *TestHelper) Logs() ([]Record, error) {
	return ParseRecords(th.Buffer)
}

// LastLog returns the most recent record.
func (th *TestHelper) LastLog() (*Record, error) {
	records, err := th.Logs()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("no log records found")
	}
	return &records[len(records)-1], nil
}

// ContainsLog checks if any record has the given message.
func (th *TestHelper) ContainsLog(msg string) bool {
	records, err := th.Logs()
	if err != nil {
		return false
	}
	for _, rec := range records {
		if rec.Message == msg {
			return true
		}
	}
	return false
}

// ContainsContext checks if any record carries key with value in its context.
func (th *TestHelper) ContainsContext(key string, value any) bool {
	records, err := th.Logs()
	if err != nil {
		return false
	}
	for _, rec := range records {
		if v, ok := rec.Context[key]; ok && sameValue(v, value) {
			return true
		}
	}
	return false
}

// CountLevel returns the number of records at the given level.
func (th *TestHelper) CountLevel(level Level) int {
	records, err := th.Logs()
	if err != nil {
		return 0
	}
	count := 0
	for _, rec := range records {
		if rec.Level == level {
			count++
		}
	}
	return count
}

// Reset clears the buffer for fresh testing.
func (th *TestHelper) Reset() {
	th.Buffer.Reset()
}

// AssertLog checks that a record exists with the given level, message and
// context values.
func (th *TestHelper) AssertLog(t *testing.T, level Level, msg string, want map[string]any) {
	t.Helper()

	records, err := th.Logs()
	require.NoError(t, err, "failed to parse logs")

	for _, rec := range records {
		if rec.Level != level || rec.Message != msg {
			continue
		}
		match := true
		for k, expected := range want {
			actual, ok := rec.Context[k]
			if !ok || !sameValue(actual, expected) {
				match = false
				break
			}
		}
		if match {
			return
		}
	}

	require.Fail(t, "log record not found", "level=%s msg=%s context=%v", level, msg, want)
}

// sameValue compares a decoded JSON value with an expected Go value.
// JSON numbers decode as float64.
func sameValue(actual, expected any) bool {
	switch e := expected.(type) {
	case int:
		if a, ok := actual.(float64); ok {
			return int(a) == e
		}
	case int64:
		if a, ok := actual.(float64); ok {
			return int64(a) == e
		}
	case float64:
		if a, ok := actual.(float64); ok {
			return a == e
		}
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

// RecordingSink keeps every record it receives.
type RecordingSink struct {
	mu      sync.Mutex
	records []*Record
	err     error
}

// Write implements [Sink]. It returns the error set with [RecordingSink.FailWith]
// after recording.
func (s *RecordingSink) Write(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

// FailWith makes later writes return err.
func (s *RecordingSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Records returns a copy of the recorded slice.
func (s *RecordingSink) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.records...)
}

// Len returns the number of recorded records.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RecordingForwarder is a [Forwarder] that keeps what it receives.
type RecordingForwarder struct {
	Min Level

	mu      sync.Mutex
	records []*Record
	closed  int
}

// Log implements [Forwarder].
func (f *RecordingForwarder) Log(_ context.Context, rec *Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
}

// MinLevel implements [Forwarder].
func (f *RecordingForwarder) MinLevel() Level {
	return f.Min
}

// Close implements [Forwarder].
func (f *RecordingForwarder) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Records returns a copy of the forwarded records.
func (f *RecordingForwarder) Records() []*Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Record(nil), f.records...)
}

// CloseCount returns how many times Close was called.
func (f *RecordingForwarder) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// MockWriter is a mock io.Writer that records all writes for test assertions.
//
// Use cases:
//   - Verify number of write calls (one per record)
//   - Inspect write contents (log format validation)
//   - Simulate write errors (error handling tests)
type MockWriter struct {
	mu         sync.Mutex
	writes     [][]byte
	writeError error
	bytesTotal int
}

// NewFailingWriter returns a [MockWriter] whose writes fail with err.
func NewFailingWriter(err error) *MockWriter {
	return &MockWriter{writeError: err}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (n int, err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.writeError != nil {
		return 0, mw.writeError
	}
	mw.writes = append(mw.writes, append([]byte(nil), p...))
	mw.bytesTotal += len(p)
	return len(p), nil
}

// WriteCount returns the number of write calls.
func (mw *MockWriter) WriteCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return len(mw.writes)
}

// BytesWritten returns total bytes written.
func (mw *MockWriter) BytesWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.bytesTotal
}

// LastWrite returns the most recent write.
func (mw *MockWriter) LastWrite() []byte {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if len(mw.writes) == 0 {
		return nil
	}
	return mw.writes[len(mw.writes)-1]
}

// Reset clears all recorded writes.
func (mw *MockWriter) Reset() {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.writes = nil
	mw.bytesTotal = 0
}
