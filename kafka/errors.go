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

import "github.com/cockroachdb/errors"

var (
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("kafka transport is closed")

	// ErrNotConnected is returned by a [Client] used before Connect succeeded.
	ErrNotConnected = errors.New("kafka client is not connected")

	// ErrNoBrokers indicates an empty broker list.
	ErrNoBrokers = errors.New("at least one broker is required")

	// ErrNoTopic indicates an empty topic.
	ErrNoTopic = errors.New("topic is required")

	// ErrInvalidCompression indicates an unknown compression name.
	ErrInvalidCompression = errors.New("invalid compression")

	// ErrInvalidSASLMechanism indicates a SASL mechanism other than plain,
	// scram-sha-256 or scram-sha-512.
	ErrInvalidSASLMechanism = errors.New("invalid SASL mechanism")

	// ErrNilClient indicates a nil [Client] was passed to [New].
	ErrNilClient = errors.New("client cannot be nil")
)
