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
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"ctxlog.dev/ctxlog/logging"
)

// State is the connection state of a [Transport].
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateClosed
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

const initKey = "init"

// Transport delivers records to a Kafka topic in batches.
//
// Records at or above MinLevel are serialized and appended to a bounded
// in-memory queue. Once a connected transport has BatchSize records queued,
// exactly those records are cut off as a batch and handed to a background
// goroutine, which also flushes the whole queue every FlushInterval. A failed
// batch is put
// back at the front of the queue so delivery order is kept across retries;
// after a failure, background flushes back off exponentially.
//
// Transport implements [logging.Forwarder]: Log never blocks on the broker
// and never fails the caller. Connection and delivery failures are reported
// on the diagnostics logger.
//
// Thread-safe: All public methods are safe for concurrent use.
type Transport struct {
	opts       Options
	client     Client
	diag       *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics

	state       atomic.Int32
	closing     atomic.Bool
	initPending atomic.Bool
	initGroup   singleflight.Group

	mu     sync.Mutex // guards queue and sealed
	queue  []Message
	sealed [][]Message // batches cut at BatchSize, oldest first

	flushMu sync.Mutex // serializes sends; guards retry and retryAt
	retry   *backoff.ExponentialBackOff
	retryAt time.Time

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	loopStart sync.Once
	started   atomic.Bool

	closeOnce sync.Once
}

// New creates a transport over client. The transport is UNINITIALIZED until
// [Transport.Init] or the first admitted [Transport.Log] connects it.
func New(client Client, opts Options, options ...Option) (*Transport, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid kafka options")
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = opts.RetryInitialInterval
	retry.MaxInterval = opts.RetryMaxInterval
	retry.MaxElapsedTime = 0
	retry.Reset()

	t := &Transport{
		opts:   opts,
		client: client,
		diag:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
		retry:  retry,
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range options {
		if o != nil {
			o(t)
		}
	}
	t.diag = t.diag.With("component", "kafka", "topic", opts.Topic)

	if t.registerer != nil {
		m, err := newMetrics(t.registerer, opts.Topic)
		if err != nil {
			return nil, err
		}
		t.metrics = m
	}
	return t, nil
}

// NewWithFranz creates a transport backed by a franz-go client built from opts.
func NewWithFranz(opts Options, options ...Option) (*Transport, error) {
	client, err := NewFranzClient(opts)
	if err != nil {
		return nil, err
	}
	return New(client, opts, options...)
}

// State returns the current connection state.
func (t *Transport) State() State {
	return State(t.state.Load())
}

// MinLevel implements [logging.Forwarder].
func (t *Transport) MinLevel() logging.Level {
	return t.opts.MinLevel
}

// Options returns the effective options, defaults included.
func (t *Transport) Options() Options {
	return t.opts
}

// QueueLen returns the number of records waiting for delivery.
func (t *Transport) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingLocked()
}

func (t *Transport) pendingLocked() int {
	n := len(t.queue)
	for _, b := range t.sealed {
		n += len(b)
	}
	return n
}

// sealLocked cuts the open queue into a batch once it holds BatchSize
// records. Nothing is cut while disconnected; the first cut after connecting
// takes everything queued meanwhile.
func (t *Transport) sealLocked() bool {
	if t.State() != StateConnected || len(t.queue) < t.opts.BatchSize {
		return false
	}
	t.sealed = append(t.sealed, t.queue)
	t.queue = nil
	return true
}

// dropOldestLocked discards the n oldest pending records.
func (t *Transport) dropOldestLocked(n int) {
	for n > 0 && len(t.sealed) > 0 {
		b := t.sealed[0]
		if len(b) > n {
			t.sealed[0] = b[n:]
			return
		}
		n -= len(b)
		t.sealed = t.sealed[1:]
	}
	if n > 0 {
		t.queue = t.queue[n:]
	}
}

// Init connects the client and starts the background flusher. It returns
// nil when already connected. Concurrent calls share one connection attempt.
//
// A failed attempt leaves the transport UNINITIALIZED; it is not retried on
// its own, but the next admitted Log call tries again.
func (t *Transport) Init(ctx context.Context) error {
	switch t.State() {
	case StateConnected:
		return nil
	case StateClosed:
		return ErrClosed
	}

	_, err, _ := t.initGroup.Do(initKey, func() (any, error) {
		return nil, t.connect(ctx)
	})
	return err
}

func (t *Transport) connect(ctx context.Context) error {
	if t.closing.Load() {
		return ErrClosed
	}
	if !t.state.CompareAndSwap(int32(StateUninitialized), int32(StateConnecting)) {
		if t.State() == StateConnected {
			return nil
		}
		return ErrClosed
	}

	if err := t.client.Connect(ctx); err != nil {
		t.state.Store(int32(StateUninitialized))
		t.metrics.recordConnectFailure()
		t.diag.Error("failed to connect to kafka", "brokers", t.opts.Brokers, "error", err)
		return errors.Wrap(err, "connect")
	}

	t.state.Store(int32(StateConnected))
	t.metrics.recordConnected(true)
	t.diag.Debug("connected to kafka", "brokers", t.opts.Brokers)

	t.loopStart.Do(func() {
		t.started.Store(true)
		go t.run()
	})
	t.mu.Lock()
	cut := t.sealLocked()
	t.mu.Unlock()
	if cut {
		t.signal()
	}
	return nil
}

// initAsync connects in the background on behalf of Log. At most one such
// attempt is pending at a time.
func (t *Transport) initAsync(ctx context.Context) {
	if !t.initPending.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer t.initPending.Store(false)
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.opts.SendTimeout)
		defer cancel()
		_ = t.Init(ictx)
	}()
}

// Log implements [logging.Forwarder]. Records below MinLevel are ignored.
func (t *Transport) Log(ctx context.Context, rec *logging.Record) {
	if rec == nil || rec.Level < t.opts.MinLevel {
		return
	}
	data, err := logging.Encode(rec)
	if err != nil {
		t.metrics.recordDropped(dropEncode, 1)
		t.diag.Error("failed to encode record", "error", err)
		return
	}
	t.enqueue(ctx, Message{Value: data})
}

func (t *Transport) enqueue(ctx context.Context, msg Message) {
	if t.closing.Load() {
		t.metrics.recordDropped(dropClosed, 1)
		return
	}
	if t.State() != StateConnected {
		t.initAsync(ctx)
	}

	t.mu.Lock()
	dropped := 0
	if pending := t.pendingLocked(); pending >= t.opts.MaxQueueSize {
		dropped = pending - t.opts.MaxQueueSize + 1
		t.dropOldestLocked(dropped)
	}
	t.queue = append(t.queue, msg)
	n := t.pendingLocked()
	cut := t.sealLocked()
	t.mu.Unlock()

	if dropped > 0 {
		t.metrics.recordDropped(dropQueueFull, dropped)
	}
	t.metrics.recordEnqueued(n)

	if cut {
		t.signal()
	}
}

func (t *Transport) signal() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

func (t *Transport) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.backgroundFlush(true)
		case <-t.kick:
			t.backgroundFlush(false)
		}
	}
}

// backgroundFlush flushes unless a previous failure asked to wait. Without
// all, only batches already cut at BatchSize are sent.
func (t *Transport) backgroundFlush(all bool) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	if !t.retryAt.IsZero() && time.Now().Before(t.retryAt) {
		return
	}
	_ = t.flushLocked(context.Background(), all)
}

// Flush sends everything queued as one batch. It does nothing when the
// transport is not connected or the queue is empty. On failure the batch is
// put back at the front of the queue and the error is returned.
func (t *Transport) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()
	return t.flushLocked(ctx, true)
}

// flushLocked sends the whole queue as one batch when all is set, and the
// sealed batches one by one otherwise. It stops at the first failure.
func (t *Transport) flushLocked(ctx context.Context, all bool) error {
	if t.State() != StateConnected {
		return nil
	}
	for {
		batch, more := t.nextBatch(all)
		if len(batch) == 0 {
			return nil
		}
		if err := t.send(ctx, batch); err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// nextBatch takes the next batch off the queue. more reports whether further
// sealed batches may follow.
func (t *Transport) nextBatch(all bool) (batch []Message, more bool) {
	t.mu.Lock()
	if all {
		for _, b := range t.sealed {
			batch = append(batch, b...)
		}
		batch = append(batch, t.queue...)
		t.sealed = nil
		t.queue = nil
	} else if len(t.sealed) > 0 {
		batch = t.sealed[0]
		t.sealed = t.sealed[1:]
		more = true
	}
	n := t.pendingLocked()
	t.mu.Unlock()

	if len(batch) > 0 {
		t.metrics.recordQueueLength(n)
	}
	return batch, more
}

func (t *Transport) send(ctx context.Context, batch []Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, t.opts.SendTimeout)
	start := time.Now()
	err := t.client.Send(sendCtx, t.opts.Topic, t.opts.Compression, batch)
	cancel()
	t.metrics.recordSend(len(batch), time.Since(start), err)

	if err != nil {
		t.requeue(batch)
		delay := t.retry.NextBackOff()
		if delay == backoff.Stop {
			delay = t.opts.RetryMaxInterval
		}
		t.retryAt = time.Now().Add(delay)
		t.diag.Warn("failed to send batch to kafka",
			"records", len(batch),
			"retry_in", delay,
			"error", err,
		)
		return errors.Wrapf(err, "send %d records", len(batch))
	}

	t.retry.Reset()
	t.retryAt = time.Time{}
	return nil
}

// requeue puts batch in front of what was queued meanwhile, then trims the
// oldest records beyond MaxQueueSize.
func (t *Transport) requeue(batch []Message) {
	t.mu.Lock()
	t.sealed = append([][]Message{batch}, t.sealed...)
	dropped := 0
	if pending := t.pendingLocked(); pending > t.opts.MaxQueueSize {
		dropped = pending - t.opts.MaxQueueSize
		t.dropOldestLocked(dropped)
	}
	n := t.pendingLocked()
	t.mu.Unlock()

	t.metrics.recordDropped(dropQueueFull, dropped)
	t.metrics.recordQueueLength(n)
}

// Close stops the background flusher, sends what is still queued and
// disconnects. Records arriving during and after Close are dropped. Only the
// first call does any work; later calls return nil.
func (t *Transport) Close(ctx context.Context) error {
	var err error
	t.closeOnce.Do(func() {
		err = t.close(ctx)
	})
	return err
}

func (t *Transport) close(ctx context.Context) error {
	t.closing.Store(true)

	// Wait for a connection attempt in flight; later attempts see closing.
	_, _, _ = t.initGroup.Do(initKey, func() (any, error) { return nil, nil })

	if t.started.Load() {
		close(t.stop)
		<-t.done
	}

	var errs []error

	t.flushMu.Lock()
	wasConnected := t.State() == StateConnected
	if wasConnected {
		if err := t.flushLocked(ctx, true); err != nil {
			errs = append(errs, err)
		}
	}
	t.mu.Lock()
	lost := t.pendingLocked()
	t.queue = nil
	t.sealed = nil
	t.mu.Unlock()
	t.flushMu.Unlock()

	if lost > 0 {
		t.metrics.recordDropped(dropShutdown, lost)
		t.metrics.recordQueueLength(0)
		t.diag.Warn("records not delivered before close", "records", lost)
	}

	if wasConnected {
		if err := t.client.Disconnect(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "disconnect"))
		}
	}
	t.state.Store(int32(StateClosed))
	t.metrics.recordConnected(false)

	return errors.Join(errs...)
}

var _ logging.Forwarder = (*Transport)(nil)
