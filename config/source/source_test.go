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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxlog.dev/ctxlog/config/codec"
)

func TestFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ctxlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kafka:\n  topic: logs\n"), 0o600))

	conf, err := NewFile(path, codec.YAML{}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"topic": "logs"}, conf["kafka"])

	_, err = NewFile(filepath.Join(t.TempDir(), "missing.yaml"), codec.YAML{}).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestContent(t *testing.T) {
	t.Parallel()

	conf, err := NewContent([]byte(`{"service":{"name":"billing"}}`), codec.JSON{}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "billing", conf["service"].(map[string]any)["name"])

	_, err = NewContent([]byte("{"), codec.JSON{}).Load(context.Background())
	assert.ErrorContains(t, err, "decode content")
}

func TestEnv(t *testing.T) {
	t.Parallel()

	environ := func() []string {
		return []string{
			"CTXLOG_KAFKA_TOPIC=logs",
			"CTXLOG_LOGGER_LEVEL=warn",
			"HOME=/root",
			"OTHER_CTXLOG_X=1",
		}
	}

	conf, err := NewEnvFrom("CTXLOG_", environ).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"kafka":  map[string]any{"topic": "logs"},
		"logger": map[string]any{"level": "warn"},
	}, conf)
}

func TestEnv_Process(t *testing.T) {
	t.Setenv("CTXLOGTEST_SERVICE_NAME", "from-env")

	conf, err := NewEnv("CTXLOGTEST_").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"service": map[string]any{"name": "from-env"}}, conf)
}
