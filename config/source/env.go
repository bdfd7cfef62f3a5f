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

package source

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"ctxlog.dev/ctxlog/config/codec"
)

// Env loads the environment variables starting with a prefix. The prefix is
// removed before decoding, so with prefix CTXLOG_ the variable
// CTXLOG_KAFKA_TOPIC becomes kafka.topic.
type Env struct {
	prefix  string
	environ func() []string
}

// NewEnv returns a source reading the process environment.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix, environ: os.Environ}
}

// NewEnvFrom reads KEY=value pairs from environ instead of the process.
func NewEnvFrom(prefix string, environ func() []string) *Env {
	return &Env{prefix: prefix, environ: environ}
}

// Load implements config.Source.
func (e *Env) Load(context.Context) (map[string]any, error) {
	var lines []string
	for _, kv := range e.environ() {
		if rest, ok := strings.CutPrefix(kv, e.prefix); ok {
			lines = append(lines, rest)
		}
	}

	var conf map[string]any
	if err := (codec.Env{}).Decode([]byte(strings.Join(lines, "\n")), &conf); err != nil {
		return nil, errors.Wrap(err, "decode environment")
	}
	return conf, nil
}
