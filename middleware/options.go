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
	"net/http"

	"github.com/google/uuid"
)

// Option configures the middleware returned by [New].
type Option func(*config)

type config struct {
	// logRequests emits a record when a request starts
	logRequests bool

	// logResponses emits exactly one completion record per request
	logResponses bool

	// excludePaths are exact paths that get a scope but no request logs
	excludePaths map[string]bool

	requestIDHeader string
	generator       func() string

	// trustProxy honours X-Forwarded-For, X-Real-IP and X-Forwarded-Proto
	trustProxy bool
}

func defaultConfig() *config {
	return &config{
		logRequests:     true,
		logResponses:    true,
		excludePaths:    make(map[string]bool),
		requestIDHeader: HeaderRequestID,
		generator:       newID,
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// WithLogRequests controls the "Request started" record. Default: true.
func WithLogRequests(enabled bool) Option {
	return func(c *config) {
		c.logRequests = enabled
	}
}

// WithLogResponses controls the completion record. Default: true.
func WithLogResponses(enabled bool) Option {
	return func(c *config) {
		c.logResponses = enabled
	}
}

// WithExcludePaths suppresses request logs for the given exact paths.
// Handlers on those paths still run inside a populated scope.
//
// Example:
//
//	middleware.New(logger, middleware.WithExcludePaths("/healthz", "/metrics"))
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.excludePaths[p] = true
		}
	}
}

// WithRequestIDHeader sets the header read for an incoming request id and
// echoed on the response. Default: X-Request-ID.
func WithRequestIDHeader(name string) Option {
	return func(c *config) {
		if name != "" {
			c.requestIDHeader = http.CanonicalHeaderKey(name)
		}
	}
}

// WithIDGenerator replaces the UUIDv7 generator used for request and span ids.
func WithIDGenerator(gen func() string) Option {
	return func(c *config) {
		if gen != nil {
			c.generator = gen
		}
	}
}

// WithTrustProxy makes the client IP and URI scheme come from proxy headers.
// Enable it only behind a proxy that overwrites those headers.
func WithTrustProxy(enabled bool) Option {
	return func(c *config) {
		c.trustProxy = enabled
	}
}
