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
	"crypto/tls"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

// FranzClient is the production [Client], built on franz-go.
//
// franz-go fixes the batch codec per client, so Connect builds a producer for
// Options.Compression and Send lazily builds one more producer for each other
// codec it is asked to use. All of them share the connection settings.
type FranzClient struct {
	kopts       []kgo.Opt
	compression Compression

	mu      sync.Mutex
	clients map[Compression]*kgo.Client
}

// NewFranzClient validates opts and prepares a client. No connection is made
// until Connect.
func NewFranzClient(opts Options) (*FranzClient, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid kafka options")
	}
	kopts, err := franzOpts(opts)
	if err != nil {
		return nil, err
	}
	return &FranzClient{kopts: kopts, compression: opts.Compression}, nil
}

func franzOpts(opts Options) ([]kgo.Opt, error) {
	kopts := []kgo.Opt{
		kgo.SeedBrokers(opts.Brokers...),
		kgo.DefaultProduceTopic(opts.Topic),
		kgo.ProduceRequestTimeout(opts.SendTimeout),
	}
	if opts.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(opts.ClientID))
	}
	if opts.SSL || opts.TLSConfig != nil {
		cfg := opts.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		kopts = append(kopts, kgo.DialTLSConfig(cfg))
	}
	if opts.SASL != nil {
		mech, err := saslMechanism(*opts.SASL)
		if err != nil {
			return nil, err
		}
		kopts = append(kopts, kgo.SASL(mech))
	}
	return kopts, nil
}

func codec(c Compression) kgo.CompressionCodec {
	switch c {
	case CompressionGzip:
		return kgo.GzipCompression()
	case CompressionSnappy:
		return kgo.SnappyCompression()
	case CompressionLZ4:
		return kgo.Lz4Compression()
	case CompressionZstd:
		return kgo.ZstdCompression()
	default:
		return kgo.NoCompression()
	}
}

func saslMechanism(s SASL) (sasl.Mechanism, error) {
	switch s.Mechanism {
	case SASLPlain:
		return plain.Auth{User: s.Username, Pass: s.Password}.AsMechanism(), nil
	case SASLScramSHA256:
		return scram.Auth{User: s.Username, Pass: s.Password}.AsSha256Mechanism(), nil
	case SASLScramSHA512:
		return scram.Auth{User: s.Username, Pass: s.Password}.AsSha512Mechanism(), nil
	default:
		return nil, errors.Wrapf(ErrInvalidSASLMechanism, "%q", s.Mechanism)
	}
}

// Connect creates the underlying client and pings the cluster.
func (c *FranzClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clients != nil {
		return nil
	}
	cl, err := c.newProducer(c.compression)
	if err != nil {
		return err
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return errors.Wrap(err, "ping kafka")
	}
	c.clients = map[Compression]*kgo.Client{c.compression: cl}
	return nil
}

func (c *FranzClient) newProducer(compression Compression) (*kgo.Client, error) {
	kopts := append(slices.Clip(c.kopts), kgo.ProducerBatchCompression(codec(compression)))
	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, errors.Wrapf(err, "create kafka client (compression %s)", compression)
	}
	return cl, nil
}

// producer returns the client compressing batches with compression, building
// it on first use. It fails with [ErrNotConnected] before Connect.
func (c *FranzClient) producer(compression Compression) (*kgo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clients == nil {
		return nil, ErrNotConnected
	}
	if cl, ok := c.clients[compression]; ok {
		return cl, nil
	}
	cl, err := c.newProducer(compression)
	if err != nil {
		return nil, err
	}
	c.clients[compression] = cl
	return cl, nil
}

// Send produces msgs synchronously with the given batch codec and returns the
// first failure.
func (c *FranzClient) Send(ctx context.Context, topic string, compression Compression, msgs []Message) error {
	cl, err := c.producer(compression)
	if err != nil {
		return err
	}

	records := make([]*kgo.Record, len(msgs))
	for i, m := range msgs {
		records[i] = &kgo.Record{Topic: topic, Key: m.Key, Value: m.Value}
	}
	return cl.ProduceSync(ctx, records...).FirstErr()
}

// Disconnect flushes buffered records and closes the client.
func (c *FranzClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for compression, cl := range c.clients {
		if err := cl.Flush(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "flush kafka client (compression %s)", compression))
		}
		cl.Close()
	}
	c.clients = nil
	return errors.Join(errs...)
}

var _ Client = (*FranzClient)(nil)
