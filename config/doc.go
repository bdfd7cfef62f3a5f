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

// Package config loads ctxlog settings from files and the environment.
//
// Sources are merged in the order given, later sources overriding earlier
// ones, and keys are case-insensitive. Files may be YAML, JSON or TOML;
// environment variables map underscores to nesting:
//
//	settings, err := config.Load(ctx,
//	    config.WithFile("/etc/billing/ctxlog.yaml"),
//	    config.WithEnv("CTXLOG_"), // CTXLOG_KAFKA_BATCHSIZE=50
//	)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.New(settings.LoggingOptions()...)
//
// The generic [Config] type binds any struct the same way: fields are matched
// by their `config` tag, zero fields take their `default` tag, and a
// Validate method runs when the struct has one. A JSON Schema can check the
// merged values before binding with [WithJSONSchema].
package config
