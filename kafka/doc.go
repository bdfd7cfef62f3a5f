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

// Package kafka ships log records to a Kafka topic in batches.
//
// A [Transport] is attached to a [logging.Logger] as its forwarder:
//
//	transport, err := kafka.NewWithFranz(kafka.Options{
//	    Brokers:  []string{"kafka-1:9092", "kafka-2:9092"},
//	    ClientID: "billing",
//	    Topic:    "service-logs",
//	    MinLevel: logging.LevelWarn,
//	}, kafka.WithMetrics(prometheus.DefaultRegisterer))
//	if err != nil {
//	    return err
//	}
//	logger.AttachForwarder(transport)
//	defer logger.Close(ctx) // flushes and disconnects the transport
//
// Delivery is at-least-once in intent: a failed batch is retried in order on
// a later flush. The queue is bounded by MaxQueueSize and drops the oldest
// records when full, so a long broker outage costs records rather than
// memory.
package kafka
