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
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSource returns a source yielding a copy of conf on every Load.
func TestSource(conf map[string]any) Source {
	return SourceFunc(func(context.Context) (map[string]any, error) {
		return maps.Clone(conf), nil
	})
}

// TestSourceWithError returns a source whose Load fails with err.
func TestSourceWithError(err error) Source {
	return SourceFunc(func(context.Context) (map[string]any, error) {
		return nil, err
	})
}

// TestFile writes content to name in a temporary directory removed when the
// test ends, and returns the path.
func TestFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

// TestConfigLoaded returns a loaded [Config] over a single in-memory source.
func TestConfigLoaded(t *testing.T, conf map[string]any, opts ...Option) *Config {
	t.Helper()

	c, err := New(append([]Option{WithSource(TestSource(conf))}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background()))
	return c
}
