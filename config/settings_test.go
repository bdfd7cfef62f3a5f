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

package config

import (
	"bytes"
	"context"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxlog.dev/ctxlog/config/codec"
	"ctxlog.dev/ctxlog/config/source"
	"ctxlog.dev/ctxlog/kafka"
	"ctxlog.dev/ctxlog/logging"
)

const settingsYAML = `
service:
  name: billing
  version: 2.3.1
  environment: staging
logger:
  name: billing.api
  level: info
  format: console
kafka:
  enabled: true
  brokers:
    - kafka-1:9092
    - kafka-2:9092
  topic: service-logs
  compression: zstd
  minLevel: warn
  batchSize: 250
  flushInterval: 2s
  sasl:
    mechanism: scram-sha-512
    username: svc
    password: secret
`

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	env := source.NewEnvFrom("CTXLOG_", func() []string {
		return []string{"CTXLOG_KAFKA_TOPIC=override", "CTXLOG_LOGGER_LEVEL=error"}
	})
	s, err := Load(context.Background(),
		WithFile(TestFile(t, "ctxlog.yaml", []byte(settingsYAML))),
		WithSource(env),
	)
	require.NoError(t, err)

	assert.Equal(t, ServiceSettings{Name: "billing", Version: "2.3.1", Environment: "staging"}, s.Service)
	assert.Equal(t, "billing.api", s.Logger.Name)
	assert.Equal(t, logging.LevelError, s.Logger.Level)
	assert.Equal(t, logging.FormatConsole, s.Logger.Format)
	assert.Equal(t, "1.0.0", s.Logger.SchemaVersion)

	k := s.Kafka
	assert.True(t, k.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, k.Brokers)
	assert.Equal(t, "override", k.Topic)
	assert.Equal(t, kafka.CompressionZstd, k.Compression)
	assert.Equal(t, logging.LevelWarn, k.MinLevel)
	assert.Equal(t, 250, k.BatchSize)
	assert.Equal(t, 2*time.Second, k.FlushInterval)
	assert.Equal(t, 10000, k.MaxQueueSize)
	assert.Equal(t, 30*time.Second, k.SendTimeout)
	assert.Equal(t, kafka.SASLScramSHA512, k.SASL.Mechanism)
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Parallel()

	s, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, logging.LevelTrace, s.Logger.Level)
	assert.Equal(t, logging.FormatJSON, s.Logger.Format)
	assert.Equal(t, logging.DefaultSchemaVersion, s.Logger.SchemaVersion)
	assert.False(t, s.Kafka.Enabled)
	assert.Equal(t, kafka.DefaultBatchSize, s.Kafka.BatchSize)
	assert.Equal(t, kafka.DefaultFlushInterval, s.Kafka.FlushInterval)
	assert.Equal(t, kafka.DefaultRetryInitialInterval, s.Kafka.RetryInitialInterval)
	assert.Equal(t, kafka.DefaultRetryMaxInterval, s.Kafka.RetryMaxInterval)
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr error
		wantMsg string
		field   string
	}{
		{name: "unknown level", doc: "logger:\n  level: loud\n", wantMsg: "invalid log level"},
		{name: "unknown format", doc: "logger:\n  format: xml\n", wantErr: logging.ErrInvalidFormat},
		{name: "unknown compression", doc: "kafka:\n  compression: brotli\n", wantMsg: "invalid compression"},
		{name: "kafka without brokers", doc: "kafka:\n  enabled: true\n  topic: logs\n", wantErr: kafka.ErrNoBrokers},
		{
			name:    "bad sasl",
			doc:     "kafka:\n  enabled: true\n  brokers: k:9092\n  topic: logs\n  sasl:\n    mechanism: gssapi\n",
			wantErr: kafka.ErrInvalidSASLMechanism,
		},
		{
			name:    "broker without port",
			doc:     "kafka:\n  enabled: true\n  brokers: kafka-1\n  topic: logs\n",
			wantErr: ErrConstraint,
			field:   "kafka.brokers[0]",
		},
		{
			name:    "topic with slash",
			doc:     "kafka:\n  enabled: true\n  brokers: k:9092\n  topic: a/b\n",
			wantErr: ErrConstraint,
			field:   "kafka.topic",
		},
		{
			name:    "queue smaller than batch",
			doc:     "kafka:\n  enabled: true\n  brokers: k:9092\n  topic: logs\n  batchsize: 500\n  maxqueuesize: 10\n",
			wantErr: ErrConstraint,
			field:   "kafka.maxqueuesize",
		},
		{
			name:    "sasl without credentials",
			doc:     "kafka:\n  enabled: true\n  brokers: k:9092\n  topic: logs\n  sasl:\n    mechanism: plain\n",
			wantErr: ErrConstraint,
			field:   "kafka.sasl.username",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(context.Background(), WithContent([]byte(tt.doc), codec.TypeYAML))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.ErrorContains(t, err, tt.wantMsg)
			}

			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
			if tt.field != "" {
				assert.Contains(t, err.Error(), "settings."+tt.field)
			}
		})
	}
}

func TestLoadSettings_DisabledKafkaIsNotValidated(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), WithContent([]byte("kafka:\n  enabled: false\n"), codec.TypeYAML))
	assert.NoError(t, err)
}

func TestSettings_KafkaOptions(t *testing.T) {
	t.Parallel()

	s, err := Load(context.Background(), WithContent([]byte(settingsYAML), codec.TypeYAML))
	require.NoError(t, err)

	opts := s.KafkaOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, "billing", opts.ClientID, "client id falls back to the service name")
	assert.Equal(t, "service-logs", opts.Topic)
	require.NotNil(t, opts.SASL)
	assert.Equal(t, "svc", opts.SASL.Username)

	s.Kafka.SASL.Mechanism = ""
	s.Kafka.ClientID = "explicit"
	opts = s.KafkaOptions()
	assert.Nil(t, opts.SASL)
	assert.Equal(t, "explicit", opts.ClientID)
}

func TestSettings_LoggingOptions(t *testing.T) {
	t.Parallel()

	s, err := Load(context.Background(), WithContent([]byte(settingsYAML), codec.TypeYAML))
	require.NoError(t, err)
	s.Logger.Format = logging.FormatJSON

	buf := &bytes.Buffer{}
	logger, err := logging.New(append(s.LoggingOptions(), logging.WithOutput(buf))...)
	require.NoError(t, err)

	logger.Debug(context.Background(), "dropped below level")
	logger.Error(context.Background(), "kept")

	records, err := logging.ParseRecords(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "billing.api", records[0].Logger)
	assert.Equal(t, logging.ServiceInfo{Name: "billing", Version: "2.3.1", Environment: "staging"}, records[0].Service)
}

func TestDiscoverService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bi   *debug.BuildInfo
		env  map[string]string
		want logging.ServiceInfo
	}{
		{
			name: "no build info",
			want: logging.ServiceInfo{Name: UnknownServiceName, Version: UnknownVersion, Environment: DefaultEnvironment},
		},
		{
			name: "module path and version",
			bi:   &debug.BuildInfo{Main: debug.Module{Path: "example.com/acme/billing", Version: "v1.4.0"}},
			env:  map[string]string{"GO_ENV": "production"},
			want: logging.ServiceInfo{Name: "billing", Version: "v1.4.0", Environment: "production"},
		},
		{
			name: "devel build",
			bi:   &debug.BuildInfo{Main: debug.Module{Path: "billing", Version: "(devel)"}},
			env:  map[string]string{"APP_ENV": "qa", "GO_ENV": "production"},
			want: logging.ServiceInfo{Name: "billing", Version: UnknownVersion, Environment: "qa"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := discoverService(
				func() (*debug.BuildInfo, bool) { return tt.bi, tt.bi != nil },
				func(k string) string { return tt.env[k] },
			)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.NotEmpty(t, DiscoverService().Name)
}
