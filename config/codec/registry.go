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
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrUnknownType is returned by [Lookup] for an unregistered type.
var ErrUnknownType = errors.New("unknown codec type")

var (
	mu     sync.RWMutex
	codecs = make(map[Type]Codec)
)

// Register makes c available under name, replacing any previous codec.
func Register(name Type, c Codec) {
	mu.Lock()
	defer mu.Unlock()
	codecs[name] = c
}

// Lookup returns the codec registered under name.
func Lookup(name Type) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := codecs[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", name)
	}
	return c, nil
}

// Types lists the registered codec types in sorted order.
func Types() []Type {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Type, 0, len(codecs))
	for t := range codecs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
