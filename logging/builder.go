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
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/trace"

	"ctxlog.dev/ctxlog/errinfo"
	"ctxlog.dev/ctxlog/scope"
)

// DefaultLoggerName is used when no logger name is configured.
const DefaultLoggerName = "unknown"

// RedactedValue replaces the value of sensitive context keys.
const RedactedValue = "***REDACTED***"

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"secret":        {},
	"api_key":       {},
	"authorization": {},
}

// Builder assembles records from service metadata, the scope bound to the
// call's context and the call-site payload. The zero value is usable.
//
// Build never panics and never fails: malformed input degrades to a partial
// record.
type Builder struct {
	// Name is the logger name stamped on every record.
	Name string
	// SchemaVersion defaults to [DefaultSchemaVersion].
	SchemaVersion string
	// Service is copied into every record; IP and Port are taken from the
	// scope when present there.
	Service ServiceInfo
	// Redact replaces values of sensitive context keys with [RedactedValue].
	Redact bool
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Build creates the record for one log call.
//
// Well-known fields are read from the scope bound to ctx; method and uri
// default to [NoneValue]. When the scope carries no trace or span id, the ids
// of an active OpenTelemetry span in ctx are used.
//
// A value under [ErrorKey] in fields is converted with [errinfo.FromValue],
// stored as the record's error and removed from the context, which is only
// set when other keys remain.
func (b *Builder) Build(ctx context.Context, level Level, msg string, fields map[string]any) (rec *Record) {
	rec = &Record{
		Level:         level,
		Message:       msg,
		Logger:        b.name(),
		SchemaVersion: b.schemaVersion(),
		Datetime:      errinfo.Timestamp(b.now()),
		Service:       b.Service,
		Request:       RequestInfo{Method: NoneValue, URI: NoneValue},
	}

	defer func() {
		if r := recover(); r != nil {
			if rec.Context == nil {
				rec.Context = make(map[string]any, 1)
			}
			rec.Context["buildError"] = fmt.Sprint(r)
		}
	}()

	b.applyScope(ctx, rec)
	b.applyFields(rec, fields)
	return rec
}

func (b *Builder) applyScope(ctx context.Context, rec *Record) {
	store := scope.FromContext(ctx)

	if ip := lookup(store, scope.KeyServiceIP); ip != "" {
		rec.Service.IP = ip
	}
	if port := lookup(store, scope.KeyServicePort); port != "" {
		rec.Service.Port = port
	}
	if method := lookup(store, scope.KeyMethod); method != "" {
		rec.Request.Method = method
	}
	if uri := lookup(store, scope.KeyURI); uri != "" {
		rec.Request.URI = uri
	}
	rec.Request.Baggage = lookup(store, scope.KeyBaggage)
	rec.Request.ClientIP = lookup(store, scope.KeyClientIP)
	rec.Request.SourceSystem = lookup(store, scope.KeySourceSystem)
	rec.Request.ID = lookup(store, scope.KeyRequestID)
	rec.TraceID = lookup(store, scope.KeyTraceID)
	rec.SpanID = lookup(store, scope.KeySpanID)

	if rec.TraceID == "" || rec.SpanID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			if rec.TraceID == "" {
				rec.TraceID = sc.TraceID().String()
			}
			if rec.SpanID == "" {
				rec.SpanID = sc.SpanID().String()
			}
		}
	}
}

func (b *Builder) applyFields(rec *Record, fields map[string]any) {
	if len(fields) == 0 {
		return
	}

	rest := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == ErrorKey {
			rec.Error = errinfo.FromValue(v)
			continue
		}
		rest[k] = v
	}

	if b.Redact {
		path := visited{}
		path.enter(mapID(fields))
		redact(rest, path)
	}
	if len(rest) > 0 {
		rec.Context = rest
	}
}

func (b *Builder) name() string {
	if b.Name == "" {
		return DefaultLoggerName
	}
	return b.Name
}

func (b *Builder) schemaVersion() string {
	if b.SchemaVersion == "" {
		return DefaultSchemaVersion
	}
	return b.SchemaVersion
}

func (b *Builder) now() time.Time {
	if b.Clock == nil {
		return time.Now()
	}
	return b.Clock()
}

// lookup reads a scope value as a string. Values that cannot be converted are
// treated as absent.
func lookup(store *scope.Store, key scope.Key) string {
	v, ok := store.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// redact replaces sensitive values in m and in nested maps. m is modified in
// place; nested maps are copied before being changed. A nested map that is
// already on path is replaced by [CircularValue].
func redact(m map[string]any, path visited) {
	for k, v := range m {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			m[k] = RedactedValue
			continue
		}
		var nested map[string]any
		switch x := v.(type) {
		case map[string]any:
			nested = x
		case Fields:
			nested = map[string]any(x)
		default:
			continue
		}
		if nested == nil {
			continue
		}
		id := mapID(nested)
		if !path.enter(id) {
			m[k] = CircularValue
			continue
		}
		c := maps.Clone(nested)
		redact(c, path)
		delete(path, id)
		m[k] = c
	}
}
