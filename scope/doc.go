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

// Package scope carries ambient request fields across one logical execution.
//
// A scope is a small key/value store bound to a [context.Context]. Everything
// that runs with that context, including goroutines started from it, reads and
// writes the same store, while concurrently running executions each see their
// own:
//
//	ctx, end := scope.Begin(r.Context())
//	defer end()
//
//	scope.Set(ctx, scope.KeyRequestID, "c0ffee")
//	scope.GetString(ctx, scope.KeyRequestID) // "c0ffee"
//
// Reading or writing outside a scope is never an error: reads return nothing
// and writes are dropped. Install a logger with [SetWarnLogger] to be told
// about such writes during development.
package scope
