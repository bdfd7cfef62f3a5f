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
	"bufio"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// responseWriter records the status code. The status is read from the abort
// callback while the handler may still be writing, hence the atomics.
type responseWriter struct {
	http.ResponseWriter
	status atomic.Int32
	size   atomic.Int64
}

var (
	_ http.ResponseWriter = (*responseWriter)(nil)
	_ http.Flusher        = (*responseWriter)(nil)
	_ http.Hijacker       = (*responseWriter)(nil)
)

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status.CompareAndSwap(0, int32(code)) {
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.WriteHeader(http.StatusOK)
	n, err := rw.ResponseWriter.Write(b)
	rw.size.Add(int64(n))
	return n, err
}

// StatusCode returns the status written so far, 200 when none was.
func (rw *responseWriter) StatusCode() int {
	if s := rw.status.Load(); s != 0 {
		return int(s)
	}
	return http.StatusOK
}

// Written reports whether a status line has been sent.
func (rw *responseWriter) Written() bool {
	return rw.status.Load() != 0
}

func (rw *responseWriter) Size() int64 {
	return rw.size.Load()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		rw.status.CompareAndSwap(0, http.StatusOK)
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
