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

package scope

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
)

// Key names a value held in a [Store].
type Key string

// Well-known keys populated by HTTP integrations and read by the record builder.
const (
	KeyRequestID    Key = "requestId"
	KeyMethod       Key = "method"
	KeyURI          Key = "uri"
	KeyClientIP     Key = "clientIp"
	KeySourceSystem Key = "sourceSystem"
	KeyTraceID      Key = "traceId"
	KeySpanID       Key = "spanId"
	KeyServiceIP    Key = "serviceIp"
	KeyServicePort  Key = "servicePort"
	KeyBaggage      Key = "baggage"
)

// WellKnownKeys lists every key the record builder reads, in record order.
var WellKnownKeys = []Key{
	KeyRequestID,
	KeyMethod,
	KeyURI,
	KeyClientIP,
	KeySourceSystem,
	KeyTraceID,
	KeySpanID,
	KeyServiceIP,
	KeyServicePort,
	KeyBaggage,
}

type storeKey struct{}

// warnLogger receives warnings about context writes outside any scope.
// Nil (the default) keeps those writes silent.
var warnLogger atomic.Pointer[slog.Logger]

// SetWarnLogger installs a logger that is warned whenever [Set] is called
// outside a scope. Pass nil to silence the warnings again.
func SetWarnLogger(l *slog.Logger) {
	warnLogger.Store(l)
}

// Store is the mapping bound to one logical execution.
//
// Thread-safe: goroutines started with a context derived from the scope share
// the same Store, so every access is synchronized.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	ended  bool
}

func newStore(initial map[string]any) *Store {
	values := make(map[string]any, len(initial)+len(WellKnownKeys))
	maps.Copy(values, initial)
	return &Store{values: values}
}

// Get returns the value stored under key.
func (s *Store) Get(key Key) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[string(key)]
	return v, ok
}

// String returns the value under key if it is a non-empty string.
// Values of other types are ignored so malformed entries never leak into records.
func (s *Store) String(key Key) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Set stores value under key. It reports false once the owning execution has ended.
func (s *Store) Set(key Key, value any) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.values[string(key)] = value
	return true
}

// Delete removes key from the store.
func (s *Store) Delete(key Key) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		delete(s.values, string(key))
	}
}

// Len returns the number of stored values.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a copy of all stored values.
func (s *Store) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Ended reports whether the owning execution has completed.
func (s *Store) Ended() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}

func (s *Store) end() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

// EndFunc ends a scope opened by [Begin]. Calling it more than once is harmless.
type EndFunc func()

// Begin opens a fresh, empty scope and returns a context bound to it.
// A scope already present in ctx is shadowed, not modified.
//
// The returned EndFunc must be called when the execution completes; afterwards
// writes are dropped while reads keep returning the final values.
func Begin(ctx context.Context) (context.Context, EndFunc) {
	return BeginWithInitial(ctx, nil)
}

// BeginWithInitial is like [Begin] but seeds the scope with initial values.
func BeginWithInitial(ctx context.Context, initial map[string]any) (context.Context, EndFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newStore(initial)
	var once sync.Once
	return context.WithValue(ctx, storeKey{}, s), func() { once.Do(s.end) }
}

// Run executes fn inside a fresh, empty scope. The scope ends when fn returns,
// including when fn panics.
//
// Example:
//
//	scope.Run(ctx, func(ctx context.Context) {
//	    scope.Set(ctx, scope.KeyRequestID, id)
//	    go worker(ctx) // sees the same scope
//	})
func Run(ctx context.Context, fn func(ctx context.Context)) {
	RunWithInitial(ctx, nil, fn)
}

// RunWithInitial executes fn inside a fresh scope seeded with initial values.
func RunWithInitial(ctx context.Context, initial map[string]any, fn func(ctx context.Context)) {
	scoped, end := BeginWithInitial(ctx, initial)
	defer end()
	fn(scoped)
}

// FromContext returns the scope bound to ctx, or nil outside any scope.
func FromContext(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(storeKey{}).(*Store)
	return s
}

// FromContextOrEmpty returns the scope bound to ctx, or a detached empty
// store when there is none. Writes to a detached store are never observed by
// anyone else.
func FromContextOrEmpty(ctx context.Context) *Store {
	if s := FromContext(ctx); s != nil {
		return s
	}
	return newStore(nil)
}

// Set writes value under key into the scope bound to ctx.
// Outside a scope the write is dropped and Set reports false.
func Set(ctx context.Context, key Key, value any) bool {
	s := FromContext(ctx)
	if s == nil {
		if l := warnLogger.Load(); l != nil {
			l.Warn("context value set outside of a scope", "key", string(key))
		}
		return false
	}
	return s.Set(key, value)
}

// Get reads key from the scope bound to ctx.
func Get(ctx context.Context, key Key) (any, bool) {
	return FromContext(ctx).Get(key)
}

// GetString reads a string value from the scope bound to ctx.
func GetString(ctx context.Context, key Key) string {
	return FromContext(ctx).String(key)
}
