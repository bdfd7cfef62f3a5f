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

package logging

import (
	"fmt"
	"maps"

	jsoniter "github.com/json-iterator/go"

	"ctxlog.dev/ctxlog/errinfo"
)

// DefaultSchemaVersion is the schema version stamped on records when none is configured.
const DefaultSchemaVersion = "1.0.0"

// NoneValue is recorded for the request method and URI outside an HTTP request.
const NoneValue = "NONE"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ServiceInfo describes the service emitting records.
type ServiceInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	IP          string `json:"ip,omitempty"`
	Port        string `json:"port,omitempty"`
}

// RequestInfo describes the request a record was emitted for.
type RequestInfo struct {
	Method       string `json:"method"`
	URI          string `json:"uri"`
	Baggage      string `json:"baggage,omitempty"`
	ClientIP     string `json:"clientIp,omitempty"`
	SourceSystem string `json:"sourceSystem,omitempty"`
	ID           string `json:"id,omitempty"`
}

// Record is one structured logging event. Records are built once per log call
// and must not be modified afterwards; sinks and forwarders that need to
// change a record work on a [Record.Clone].
type Record struct {
	Level         Level              `json:"level"`
	Message       string             `json:"message"`
	Logger        string             `json:"logger"`
	SchemaVersion string             `json:"schemaVersion"`
	Datetime      string             `json:"datetime"`
	Service       ServiceInfo        `json:"service"`
	Request       RequestInfo        `json:"request"`
	TraceID       string             `json:"traceId,omitempty"`
	SpanID        string             `json:"spanId,omitempty"`
	Context       map[string]any     `json:"context,omitempty"`
	Error         *errinfo.ErrorInfo `json:"error,omitempty"`
}

// Clone returns a copy of r whose Context map and Error chain can be
// modified without affecting r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Context != nil {
		c.Context = maps.Clone(r.Context)
	}
	c.Error = r.Error.Clone()
	return &c
}

// Encode serializes r as a single-line JSON object.
//
// Context or error data that cannot be represented in JSON (channels,
// functions) is replaced by its printed form instead of failing the whole
// record. Values that refer back to their own container are replaced by
// [CircularValue].
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return json.Marshal(r)
	}
	safe := r.Clone()
	safe.Context = acyclicMap(safe.Context)
	for info := safe.Error; info != nil; info = info.Inner {
		info.Data = acyclicMap(info.Data)
	}

	data, err := json.Marshal(safe)
	if err == nil {
		return data, nil
	}

	safe.Context = sanitize(safe.Context)
	for info := safe.Error; info != nil; info = info.Inner {
		info.Data = sanitize(info.Data)
	}
	return json.Marshal(safe)
}

func sanitize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprintf("%+v", v)
			continue
		}
		out[k] = v
	}
	return out
}
