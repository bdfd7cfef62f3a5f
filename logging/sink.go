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
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

// Sink writes fully built records to a local destination.
//
// Write is called synchronously from the log call and must be safe for
// concurrent use. It must not retain or modify the record.
type Sink interface {
	Write(rec *Record) error
}

// SinkFunc adapts a function to the [Sink] interface.
type SinkFunc func(rec *Record) error

// Write calls f(rec).
func (f SinkFunc) Write(rec *Record) error {
	return f(rec)
}

// Discard is a sink that drops every record.
var Discard Sink = SinkFunc(func(*Record) error { return nil })

// JSONSink writes one JSON object per line.
//
// Thread-safe: each record is encoded first and then written with a single
// Write call under a mutex, so lines from concurrent calls never interleave.
type JSONSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONSink creates a [JSONSink] writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

// Write implements [Sink].
func (s *JSONSink) Write(rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err = s.w.Write(data); err != nil {
		return errors.Wrap(err, "write record")
	}
	return nil
}

type multiSink []Sink

// MultiSink returns a sink that writes each record to every sink in order.
// All sinks are attempted; their errors are joined.
func MultiSink(sinks ...Sink) Sink {
	flat := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return flat
}

func (m multiSink) Write(rec *Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
