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
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"ctxlog.dev/ctxlog/logging"
)

// Defaults applied by [Options] for zero fields.
const (
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 5 * time.Second
	DefaultMaxQueueSize         = 10000
	DefaultSendTimeout          = 30 * time.Second
	DefaultRetryInitialInterval = 500 * time.Millisecond
	DefaultRetryMaxInterval     = time.Minute
)

// SASLMechanism names a SASL authentication mechanism.
type SASLMechanism string

const (
	SASLPlain       SASLMechanism = "plain"
	SASLScramSHA256 SASLMechanism = "scram-sha-256"
	SASLScramSHA512 SASLMechanism = "scram-sha-512"
)

// SASL holds SASL credentials.
type SASL struct {
	Mechanism SASLMechanism
	Username  string
	Password  string
}

// Options configures a [Transport] and the franz-go client.
type Options struct {
	Brokers     []string
	ClientID    string
	Topic       string
	Compression Compression

	// BatchSize is the queue length at which those records are cut off and
	// sent as one batch without waiting for FlushInterval.
	BatchSize int
	// FlushInterval is the period of the background flush.
	FlushInterval time.Duration
	// MinLevel is the lowest level admitted to the queue. The zero value is TRACE.
	MinLevel logging.Level

	// SSL enables TLS with TLSConfig, or a TLS 1.2+ default when it is nil.
	SSL       bool
	TLSConfig *tls.Config
	SASL      *SASL

	// MaxQueueSize caps the pending queue; the oldest records are dropped
	// first when it is full.
	MaxQueueSize int
	// SendTimeout bounds one Send call.
	SendTimeout time.Duration
	// RetryInitialInterval and RetryMaxInterval shape the exponential backoff
	// applied to background flushes after a failed send.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = DefaultMaxQueueSize
	}
	if o.MaxQueueSize < o.BatchSize {
		o.MaxQueueSize = o.BatchSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.RetryInitialInterval <= 0 {
		o.RetryInitialInterval = DefaultRetryInitialInterval
	}
	if o.RetryMaxInterval <= 0 {
		o.RetryMaxInterval = DefaultRetryMaxInterval
	}
	return o
}

// Validate checks the fields that have no usable default.
func (o Options) Validate() error {
	var errs []error
	if len(o.Brokers) == 0 {
		errs = append(errs, ErrNoBrokers)
	}
	if o.Topic == "" {
		errs = append(errs, ErrNoTopic)
	}
	if !o.MinLevel.Valid() {
		errs = append(errs, errors.Wrapf(logging.ErrInvalidLevel, "min level %d", int8(o.MinLevel)))
	}
	if o.Compression < CompressionNone || o.Compression > CompressionZstd {
		errs = append(errs, errors.Wrapf(ErrInvalidCompression, "%d", int8(o.Compression)))
	}
	if o.SASL != nil {
		switch o.SASL.Mechanism {
		case SASLPlain, SASLScramSHA256, SASLScramSHA512:
		default:
			errs = append(errs, errors.Wrapf(ErrInvalidSASLMechanism, "%q", o.SASL.Mechanism))
		}
	}
	return errors.Join(errs...)
}

// Option configures a [Transport].
type Option func(*Transport)

// WithDiagnostics sets the logger used for connection and delivery failures.
// It must not write back into the transport.
func WithDiagnostics(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.diag = l
		}
	}
}

// WithMetrics registers the transport's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(t *Transport) { t.registerer = reg }
}
