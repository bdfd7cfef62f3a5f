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
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ctxlog.dev/ctxlog/logging"
	"ctxlog.dev/ctxlog/scope"
)

func newEmitCmd(root *rootOptions) *cobra.Command {
	var (
		count   int
		level   logging.Level
		message string
		timeout time.Duration
	)
	level = logging.LevelInfo

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Log sample records inside a request scope, then flush",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := root.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			logger, err := setup(settings, prometheus.NewRegistry(), logging.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			emit(cmd.Context(), logger, count, level, message)

			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), timeout)
			defer cancel()
			return errors.Wrap(logger.Close(ctx), "close logger")
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 3, "number of records")
	cmd.Flags().TextVar(&level, "level", level, "record level")
	cmd.Flags().StringVarP(&message, "message", "m", "sample record", "record message")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "time allowed for the final flush")
	return cmd
}

func emit(ctx context.Context, logger *logging.Logger, count int, level logging.Level, message string) {
	requestID := uuid.Must(uuid.NewV7()).String()
	initial := map[string]any{
		string(scope.KeyRequestID):    requestID,
		string(scope.KeyTraceID):      requestID,
		string(scope.KeySpanID):       uuid.NewString(),
		string(scope.KeySourceSystem): "ctxlog-demo",
	}

	scope.RunWithInitial(ctx, initial, func(ctx context.Context) {
		for i := range count {
			logger.Log(ctx, level, message, logging.Fields{"sequence": i + 1})
		}
	})
}
