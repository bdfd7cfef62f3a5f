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

package main

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"ctxlog.dev/ctxlog/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleHello(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	logging.FromContext(r.Context()).Info("greeting", logging.Fields{"name": name})
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello, " + name})
}

// handleWork fans out to goroutines; each one logs with the request's scope.
func handleWork(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	tasks, err := strconv.Atoi(r.URL.Query().Get("tasks"))
	if err != nil || tasks <= 0 || tasks > 32 {
		tasks = 3
	}

	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(ctx context.Context) {
			defer wg.Done()
			logging.FromContext(ctx).Debug("task finished", logging.Fields{"task": i})
		}(r.Context())
	}
	wg.Wait()

	log.Logger().LogDuration(r.Context(), "work done", start, logging.Fields{"tasks": tasks})
	writeJSON(w, http.StatusAccepted, map[string]int{"tasks": tasks})
}

var errUpstream = errors.New("upstream unavailable")

func handleFail(w http.ResponseWriter, r *http.Request) {
	err := errors.Wrap(errUpstream, "fetch exchange rates")
	log := logging.FromContext(r.Context())
	log.Logger().ErrorWithStack(r.Context(), "request failed", err, true)
	writeProblem(w, r, http.StatusBadGateway, err)
}
