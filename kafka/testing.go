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

package kafka

import (
	"context"
	"sync"
)

// FakeClient is an in-memory [Client] for tests.
//
// Use cases:
//   - Inspect delivered batches and their order
//   - Simulate connect and send failures
//   - Block sends to observe concurrent behavior
type FakeClient struct {
	mu          sync.Mutex
	batches     [][]Message
	connects    int
	disconnects int
	connectErr  error
	sendErrs    []error
	gate        chan struct{}
	compression []Compression
}

// FailConnect makes Connect return err until it is called with nil.
func (f *FakeClient) FailConnect(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// FailSends makes the next len(errs) sends return errs in order.
func (f *FakeClient) FailSends(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErrs = append(f.sendErrs, errs...)
}

// Block makes sends wait until the returned function is called or their
// context ends.
func (f *FakeClient) Block() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Connect implements [Client].
func (f *FakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

// Send implements [Client]. Failed sends are not recorded as batches.
func (f *FakeClient) Send(ctx context.Context, _ string, compression Compression, msgs []Message) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.compression = append(f.compression, compression)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.batches = append(f.batches, append([]Message(nil), msgs...))
	return nil
}

// Disconnect implements [Client].
func (f *FakeClient) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

// Batches returns the delivered batches.
func (f *FakeClient) Batches() [][]Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]Message(nil), f.batches...)
}

// Values returns every delivered message value, in delivery order.
func (f *FakeClient) Values() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, b := range f.batches {
		for _, m := range b {
			out = append(out, string(m.Value))
		}
	}
	return out
}

// Attempts returns the number of Send calls, failed ones included.
func (f *FakeClient) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.compression)
}

// Compressions returns the codec passed to each Send call.
func (f *FakeClient) Compressions() []Compression {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Compression(nil), f.compression...)
}

// Connects returns the number of Connect calls.
func (f *FakeClient) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Disconnects returns the number of Disconnect calls.
func (f *FakeClient) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

var _ Client = (*FakeClient)(nil)
