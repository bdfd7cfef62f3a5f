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
	"os"
	"path"
	"runtime/debug"

	"ctxlog.dev/ctxlog/logging"
)

// Values used when discovery finds nothing.
const (
	UnknownServiceName = "unknown"
	UnknownVersion     = "0.0.0"
	DefaultEnvironment = "development"
)

// DiscoverService describes the running binary: the last element of its main
// module path, the module version, and the environment from APP_ENV or
// GO_ENV.
func DiscoverService() logging.ServiceInfo {
	return discoverService(debug.ReadBuildInfo, os.Getenv)
}

func discoverService(readBuildInfo func() (*debug.BuildInfo, bool), getenv func(string) string) logging.ServiceInfo {
	info := logging.ServiceInfo{
		Name:        UnknownServiceName,
		Version:     UnknownVersion,
		Environment: DefaultEnvironment,
	}

	if bi, ok := readBuildInfo(); ok && bi != nil {
		if bi.Main.Path != "" {
			info.Name = path.Base(bi.Main.Path)
		}
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
	}

	for _, key := range []string{"APP_ENV", "GO_ENV"} {
		if env := getenv(key); env != "" {
			info.Environment = env
			break
		}
	}
	return info
}
