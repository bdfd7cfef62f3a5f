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
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Reasons reported on the dropped counter.
const (
	dropQueueFull = "queue_full"
	dropClosed    = "closed"
	dropEncode    = "encode"
	dropInvalid   = "invalid"
	dropShutdown  = "shutdown"
)

// metrics holds the transport collectors. A nil *metrics records nothing.
type metrics struct {
	enqueued        prometheus.Counter
	dropped         *prometheus.CounterVec
	delivered       prometheus.Counter
	sendFailures    prometheus.Counter
	requeued        prometheus.Counter
	connectFailures prometheus.Counter
	queueLength     prometheus.Gauge
	connected       prometheus.Gauge
	sendDuration    prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, topic string) (*metrics, error) {
	labels := prometheus.Labels{"topic": topic}
	m := &metrics{
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ctxlog_kafka_records_enqueued_total",
			Help:        "Records admitted to the pending queue",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ctxlog_kafka_records_dropped_total",
			Help:        "Records discarded before delivery",
			ConstLabels: labels,
		}, []string{"reason"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ctxlog_kafka_records_delivered_total",
			Help:        "Records acknowledged by the broker",
			ConstLabels: labels,
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ctxlog_kafka_send_failures_total",
			Help:        "Failed batch sends",
			ConstLabels: labels,
		}),
		requeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ctxlog_kafka_records_requeued_total",
			Help:        "Records put back at the front of the queue after a failed send",
			ConstLabels: labels,
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ctxlog_kafka_connect_failures_total",
			Help:        "Failed connection attempts",
			ConstLabels: labels,
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ctxlog_kafka_queue_length",
			Help:        "Records waiting in the pending queue",
			ConstLabels: labels,
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ctxlog_kafka_connected",
			Help:        "1 while the transport is connected",
			ConstLabels: labels,
		}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "ctxlog_kafka_send_duration_seconds",
			Help:        "Duration of batch sends",
			ConstLabels: labels,
			Buckets:     []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.enqueued, m.dropped, m.delivered, m.sendFailures, m.requeued,
		m.connectFailures, m.queueLength, m.connected, m.sendDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register kafka metrics")
		}
	}
	return m, nil
}

func (m *metrics) recordEnqueued(queueLen int) {
	if m == nil {
		return
	}
	m.enqueued.Inc()
	m.queueLength.Set(float64(queueLen))
}

func (m *metrics) recordDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.WithLabelValues(reason).Add(float64(n))
}

func (m *metrics) recordSend(n int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.sendDuration.Observe(took.Seconds())
	if err != nil {
		m.sendFailures.Inc()
		m.requeued.Add(float64(n))
		return
	}
	m.delivered.Add(float64(n))
}

func (m *metrics) recordQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}

func (m *metrics) recordConnected(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func (m *metrics) recordConnectFailure() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}
