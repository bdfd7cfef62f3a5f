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

// Package middleware connects net/http servers to the ctxlog context scope.
//
// Wrap a handler once and every record logged while serving a request carries
// its request id, trace and span ids, method, URI and client address:
//
//	logger := logging.MustNew(logging.WithServiceName("billing"))
//	mux := http.NewServeMux()
//	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
//	    logging.FromContext(r.Context()).Info("listing invoices")
//	})
//	http.ListenAndServe(":8080", middleware.New(logger)(mux))
//
// Trace ids come from an active OpenTelemetry span when there is one, then
// from a W3C traceparent header, then from X-Trace-Id. Without any of them
// the request id doubles as the trace id.
package middleware
