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

package kafka

import (
	"bytes"
	"context"
	"io"

	"github.com/valyala/fastjson"

	"ctxlog.dev/ctxlog/logging"
)

var parserPool fastjson.ParserPool

// Writer returns an [io.Writer] that accepts JSON records, one per line, as
// written by [logging.JSONSink]. Each line's "level" is read without decoding
// the whole record; admitted lines are queued unchanged.
//
// Lines that are not JSON objects with a known level are dropped. Write
// always reports success so a tee into Kafka never fails the local sink.
//
//	sink := logging.NewJSONSink(io.MultiWriter(os.Stdout, transport.Writer()))
func (t *Transport) Writer() io.Writer {
	return transportWriter{t: t}
}

type transportWriter struct {
	t *Transport
}

func (w transportWriter) Write(p []byte) (int, error) {
	rest := p
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			rest = nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		w.t.writeLine(line)
	}
	return len(p), nil
}

func (t *Transport) writeLine(line []byte) {
	parser := parserPool.Get()
	defer parserPool.Put(parser)

	v, err := parser.ParseBytes(line)
	if err != nil || v.Type() != fastjson.TypeObject {
		t.metrics.recordDropped(dropInvalid, 1)
		t.diag.Warn("dropping line that is not a JSON record", "error", err)
		return
	}

	level, err := logging.ParseLevel(string(v.GetStringBytes("level")))
	if err != nil {
		t.metrics.recordDropped(dropInvalid, 1)
		t.diag.Warn("dropping record without a valid level", "error", err)
		return
	}
	if level < t.opts.MinLevel {
		return
	}

	t.enqueue(context.Background(), Message{Value: bytes.Clone(line)})
}
