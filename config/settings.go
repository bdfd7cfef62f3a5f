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
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"ctxlog.dev/ctxlog/kafka"
	"ctxlog.dev/ctxlog/logging"
)

// Settings is the file and environment form of a ctxlog setup.
//
//	service:
//	  name: billing
//	logger:
//	  level: info
//	  format: console
//	kafka:
//	  enabled: true
//	  brokers: kafka-1:9092,kafka-2:9092
//	  topic: service-logs
//	  minLevel: warn
type Settings struct {
	Service ServiceSettings `config:"service"`
	Logger  LoggerSettings  `config:"logger"`
	Kafka   KafkaSettings   `config:"kafka"`
}

// ServiceSettings overrides the discovered service identity. Empty fields
// keep the discovered value.
type ServiceSettings struct {
	Name        string `config:"name"`
	Version     string `config:"version"`
	Environment string `config:"environment"`
}

type LoggerSettings struct {
	Name          string         `config:"name"`
	SchemaVersion string         `config:"schemaversion" default:"1.0.0"`
	Level         logging.Level  `config:"level"`
	Format        logging.Format `config:"format" default:"json"`
}

// KafkaSettings are checked against their validate tags only while Enabled
// is set.
type KafkaSettings struct {
	Enabled     bool              `config:"enabled"`
	Brokers     []string          `config:"brokers" validate:"dive,hostname_port"`
	ClientID    string            `config:"clientid" validate:"omitempty,printascii"`
	Topic       string            `config:"topic" validate:"omitempty,max=249,kafkatopic"`
	Compression kafka.Compression `config:"compression"`
	MinLevel    logging.Level     `config:"minlevel"`
	SSL         bool              `config:"ssl"`
	SASL        SASLSettings      `config:"sasl"`

	BatchSize            int           `config:"batchsize" default:"100" validate:"gte=1"`
	FlushInterval        time.Duration `config:"flushinterval" default:"5s" validate:"gt=0"`
	MaxQueueSize         int           `config:"maxqueuesize" default:"10000" validate:"gtefield=BatchSize"`
	SendTimeout          time.Duration `config:"sendtimeout" default:"30s" validate:"gt=0"`
	RetryInitialInterval time.Duration `config:"retryinitialinterval" default:"500ms" validate:"gt=0"`
	RetryMaxInterval     time.Duration `config:"retrymaxinterval" default:"1m" validate:"gtefield=RetryInitialInterval"`
}

// SASLSettings is ignored while Mechanism is empty.
type SASLSettings struct {
	Mechanism kafka.SASLMechanism `config:"mechanism"`
	Username  string              `config:"username" validate:"required_with=Mechanism"`
	Password  string              `config:"password" validate:"required_with=Mechanism"`
}

// Load binds [Settings] from the given sources, for example:
//
//	settings, err := config.Load(ctx, config.WithFile("ctxlog.yaml"), config.WithEnv("CTXLOG_"))
func Load(ctx context.Context, opts ...Option) (*Settings, error) {
	var s Settings
	c, err := New(append(slices.Clip(opts), WithBinding(&s))...)
	if err != nil {
		return nil, err
	}
	if err = c.Load(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the logger section always and the kafka section when
// enabled.
func (s *Settings) Validate() error {
	var errs []error
	if !s.Logger.Level.Valid() {
		errs = append(errs, NewFieldError("settings", "logger.level", "validate", logging.ErrInvalidLevel))
	}
	switch s.Logger.Format {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, NewFieldError("settings", "logger.format", "validate",
			errors.Wrapf(logging.ErrInvalidFormat, "%q", s.Logger.Format)))
	}
	if s.Kafka.Enabled {
		if err := s.KafkaOptions().Validate(); err != nil {
			errs = append(errs, NewFieldError("settings", "kafka", "validate", err))
		}
		errs = append(errs, validateTags("kafka", s.Kafka)...)
	}
	return errors.Join(errs...)
}

// ServiceInfo merges the configured service fields over [DiscoverService].
func (s *Settings) ServiceInfo() logging.ServiceInfo {
	info := DiscoverService()
	if s.Service.Name != "" {
		info.Name = s.Service.Name
	}
	if s.Service.Version != "" {
		info.Version = s.Service.Version
	}
	if s.Service.Environment != "" {
		info.Environment = s.Service.Environment
	}
	return info
}

// LoggingOptions returns the options for [logging.New]. Callers append
// their own, such as a forwarder or an output.
func (s *Settings) LoggingOptions() []logging.Option {
	opts := []logging.Option{
		logging.WithService(s.ServiceInfo()),
		logging.WithLevel(s.Logger.Level),
		logging.WithFormat(s.Logger.Format),
	}
	if s.Logger.Name != "" {
		opts = append(opts, logging.WithName(s.Logger.Name))
	}
	if s.Logger.SchemaVersion != "" {
		opts = append(opts, logging.WithSchemaVersion(s.Logger.SchemaVersion))
	}
	return opts
}

// KafkaOptions converts the kafka section. ClientID defaults to the service
// name.
func (s *Settings) KafkaOptions() kafka.Options {
	k := s.Kafka
	opts := kafka.Options{
		Brokers:              k.Brokers,
		ClientID:             k.ClientID,
		Topic:                k.Topic,
		Compression:          k.Compression,
		BatchSize:            k.BatchSize,
		FlushInterval:        k.FlushInterval,
		MinLevel:             k.MinLevel,
		SSL:                  k.SSL,
		MaxQueueSize:         k.MaxQueueSize,
		SendTimeout:          k.SendTimeout,
		RetryInitialInterval: k.RetryInitialInterval,
		RetryMaxInterval:     k.RetryMaxInterval,
	}
	if opts.ClientID == "" {
		opts.ClientID = s.ServiceInfo().Name
	}
	if k.SASL.Mechanism != "" {
		opts.SASL = &kafka.SASL{
			Mechanism: k.SASL.Mechanism,
			Username:  k.SASL.Username,
			Password:  k.SASL.Password,
		}
	}
	return opts
}
