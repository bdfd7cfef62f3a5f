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
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Message is one serialized record on its way to the broker.
type Message struct {
	Key   []byte
	Value []byte
}

// Client is the broker boundary used by [Transport].
//
// Implementations do not need to be safe for concurrent Send calls; the
// transport never overlaps them.
type Client interface {
	// Connect establishes the connection. It may be called again after a failure.
	Connect(ctx context.Context) error
	// Send delivers msgs, in order, as one batch compressed with compression.
	Send(ctx context.Context, topic string, compression Compression, msgs []Message) error
	// Disconnect flushes client-side buffers and releases the connection.
	Disconnect(ctx context.Context) error
}

// Compression is the batch compression codec passed through to the client.
type Compression int8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionSnappy
	CompressionLZ4
	CompressionZstd
)

var compressionNames = [...]string{
	CompressionNone:   "none",
	CompressionGzip:   "gzip",
	CompressionSnappy: "snappy",
	CompressionLZ4:    "lz4",
	CompressionZstd:   "zstd",
}

// String returns the lower-case codec name.
func (c Compression) String() string {
	if c >= 0 && int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return "unknown"
}

// ParseCompression parses a codec name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return CompressionNone, nil
	}
	for i, n := range compressionNames {
		if n == name {
			return Compression(i), nil
		}
	}
	return CompressionNone, errors.Wrapf(ErrInvalidCompression, "%q", s)
}

// MarshalText implements [encoding.TextMarshaler].
func (c Compression) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(compressionNames) {
		return nil, errors.Wrapf(ErrInvalidCompression, "%d", int8(c))
	}
	return []byte(compressionNames[c]), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
