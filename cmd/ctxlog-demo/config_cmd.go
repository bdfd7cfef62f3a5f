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
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"ctxlog.dev/ctxlog/config"
	"ctxlog.dev/ctxlog/config/codec"
)

const masked = "******"

func newConfigCmd(root *rootOptions) *cobra.Command {
	format := string(codec.TypeYAML)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings after merging the file and the environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := root.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			enc, err := codec.Lookup(codec.Type(format))
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), enc, settings)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", format, "output format: yaml, json or toml")
	return cmd
}

// printSettings writes settings with the SASL password masked and the
// discovered service identity filled in.
func printSettings(w io.Writer, enc codec.Encoder, settings *config.Settings) error {
	s := *settings
	if s.Kafka.SASL.Password != "" {
		s.Kafka.SASL.Password = masked
	}
	info := s.ServiceInfo()
	s.Service = config.ServiceSettings{Name: info.Name, Version: info.Version, Environment: info.Environment}

	data, err := enc.Encode(s)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	_, err = w.Write(data)
	return err
}
