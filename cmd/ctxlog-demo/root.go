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

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ctxlog.dev/ctxlog/config"
	"ctxlog.dev/ctxlog/kafka"
	"ctxlog.dev/ctxlog/logging"
)

type rootOptions struct {
	configFile string
	envPrefix  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "ctxlog-demo",
		Short:        "Exercise ctxlog from the command line",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "settings file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", "CTXLOG_", "prefix of environment variables overriding the settings file")

	cmd.AddCommand(
		newServeCmd(opts),
		newEmitCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadSettings(ctx context.Context) (*config.Settings, error) {
	var sources []config.Option
	if o.configFile != "" {
		sources = append(sources, config.WithFile(o.configFile))
	}
	if o.envPrefix != "" {
		sources = append(sources, config.WithEnv(o.envPrefix))
	}
	return config.Load(ctx, sources...)
}

// setup builds the logger described by settings. When Kafka is enabled the
// transport is attached as the logger's forwarder and registers its metrics
// with reg; closing the logger flushes and disconnects it.
func setup(settings *config.Settings, reg prometheus.Registerer, extra ...logging.Option) (*logging.Logger, error) {
	logger, err := logging.New(append(settings.LoggingOptions(), extra...)...)
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}
	if !settings.Kafka.Enabled {
		return logger, nil
	}

	diag := slog.New(slog.NewTextHandler(os.Stderr, nil))
	transport, err := kafka.NewWithFranz(settings.KafkaOptions(),
		kafka.WithDiagnostics(diag),
		kafka.WithMetrics(reg),
	)
	if err != nil {
		_ = logger.Close(context.Background())
		return nil, errors.Wrap(err, "create kafka transport")
	}
	logger.AttachForwarder(transport)
	return logger, nil
}
