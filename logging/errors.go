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

import "github.com/cockroachdb/errors"

// Sentinel errors returned by constructors and configuration methods.
// Log calls themselves never return errors.
//
// Usage pattern:
//
//	if _, err := logging.ParseLevel(s); err != nil {
//	    if errors.Is(err, logging.ErrInvalidLevel) {
//	        // Fall back to the default level
//	    }
//	}
var (
	// ErrInvalidLevel indicates a level outside TRACE..CRITICAL or an unknown level name.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidFormat indicates an unsupported local output format was specified.
	// Valid formats: FormatJSON, FormatConsole.
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrNilOutput indicates a nil writer was passed to [WithOutput].
	ErrNilOutput = errors.New("output writer cannot be nil")

	// ErrNilSink indicates a nil sink was passed to [WithSink].
	ErrNilSink = errors.New("sink cannot be nil")

	// ErrLoggerClosed is reported to the error handler when a forwarder is
	// attached to a logger that has already been closed.
	ErrLoggerClosed = errors.New("logger is closed")
)
