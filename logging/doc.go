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

// Package logging provides structured, context-enriched logging.
//
// Every log call builds one immutable [Record]: a fixed envelope of service
// metadata, the request fields found in the [scope] bound to the call's
// context, an optional free-form context map and an optional error chain
// formatted by [errinfo]. The record is written to a local [Sink] and, when an
// asynchronous [Forwarder] is attached and the level clears its minimum,
// handed over for remote delivery.
//
// # Basic Usage
//
//	logger := logging.MustNew(
//	    logging.WithName("billing.api"),
//	    logging.WithServiceName("billing"),
//	    logging.WithServiceVersion("1.4.2"),
//	    logging.WithEnvironment("production"),
//	)
//	defer logger.Close(context.Background())
//
//	logger.Info(ctx, "invoice created", logging.Fields{"invoiceId": id})
//	logger.Error(ctx, "charge failed", logging.Err(err))
//
// # Request Enrichment
//
// Inside a scope opened with [scope.Begin] (usually by the HTTP middleware),
// method, uri, request id, trace ids and the other well-known keys are copied
// into every record without being passed at the call site. Outside a scope,
// request.method and request.uri are "NONE".
//
// # Local Output
//
// JSON lines go to stdout by default. [WithConsoleSink] switches to colored
// human-readable lines, [WithSink] replaces the built-in sinks entirely.
//
// # Log Sampling
//
//	logger := logging.MustNew(
//	    logging.WithSampling(logging.SamplingConfig{
//	        Initial:    100,
//	        Thereafter: 100,
//	        Tick:       time.Minute,
//	    }),
//	)
//
// ERROR and CRITICAL records always bypass sampling.
//
// # Sensitive Data Redaction
//
// Values of password, token, secret, api_key and authorization context keys
// are replaced with [RedactedValue], also inside nested maps.
// [WithoutRedaction] turns this off.
//
// # slog Interop
//
// [Logger.Slog] returns a *slog.Logger backed by the same pipeline;
// [WithGlobalLogger] installs it as the slog default.
package logging
