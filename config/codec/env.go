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

package codec

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
)

// TypeEnv is a newline separated list of KEY=value pairs.
const TypeEnv Type = "env"

func init() {
	Register(TypeEnv, Env{})
}

// Env decodes KEY=value lines into nested maps: each underscore in a key
// opens one level, so KAFKA_SASL_USERNAME=svc becomes
// {"kafka": {"sasl": {"username": "svc"}}}. Keys are lower-cased and values
// stay strings. Encoding is not supported.
type Env struct{}

func (Env) Encode(any) ([]byte, error) {
	return nil, errors.New("encoding environment variables is not supported")
}

func (Env) Decode(data []byte, v any) error {
	ptr, ok := v.(*map[string]any)
	if !ok {
		return errors.Newf("env codec decodes into *map[string]any, not %T", v)
	}

	conf := make(map[string]any)
	for _, line := range bytes.Split(data, []byte("\n")) {
		key, value, found := strings.Cut(string(line), "=")
		if !found {
			continue
		}
		parts := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(key)), func(r rune) bool { return r == '_' })
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	*ptr = conf
	return nil
}
