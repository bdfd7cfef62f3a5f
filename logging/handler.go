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
	"log/slog"
	"maps"
	"slices"
)

// Slog returns a [slog.Logger] whose records go through this logger: slog
// attributes become the record context, an attribute named "error" becomes
// the record error and groups become nested maps.
//
// Libraries that only know log/slog can then share the scope enrichment,
// sinks and forwarder of this logger.
func (l *Logger) Slog() *slog.Logger {
	l.slogOnce.Do(func() {
		l.slogger = slog.New(&slogHandler{logger: l})
	})
	return l.slogger
}

// slogHandler implements [slog.Handler] on top of a [Logger].
//
// Thread-safe: handlers are immutable after creation.
type slogHandler struct {
	logger *Logger
	attrs  []slog.Attr
	groups []string
}

// Enabled reports whether the handler handles records at the given level.
func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(FromSlogLevel(level))
}

// Handle converts r into a record.
func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())

	// Stored attrs already carry the groups that were open when they were added.
	for _, a := range h.attrs {
		addAttr(fields, a)
	}
	if len(h.groups) == 0 {
		r.Attrs(func(a slog.Attr) bool {
			addAttr(fields, a)
			return true
		})
		h.logger.logFields(ctx, FromSlogLevel(r.Level), r.Message, fields)
		return nil
	}

	grouped := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		addAttr(grouped, a)
		return true
	})

	// An error attribute inside a group stays in the context.
	if v, ok := grouped[ErrorKey]; ok {
		if _, isErr := v.(error); isErr {
			fields[ErrorKey] = v
			delete(grouped, ErrorKey)
		}
	}

	// Open groups without attributes are left out.
	if len(grouped) > 0 {
		target := fields
		for _, g := range h.groups {
			next, ok := target[g].(map[string]any)
			if ok {
				next = maps.Clone(next)
			} else {
				next = make(map[string]any)
			}
			target[g] = next
			target = next
		}
		maps.Copy(target, grouped)
	}

	h.logger.logFields(ctx, FromSlogLevel(r.Level), r.Message, fields)
	return nil
}

// WithAttrs returns a new handler with additional attributes.
// Implements [slog.Handler.WithAttrs].
func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	if len(h.groups) > 0 {
		// Attributes added after WithGroup belong to the innermost group.
		grouped := slog.Attr{Key: h.groups[len(h.groups)-1], Value: slog.GroupValue(attrs...)}
		outer := &slogHandler{
			logger: h.logger,
			attrs:  h.attrs,
			groups: h.groups[:len(h.groups)-1],
		}
		nested := outer.WithAttrs([]slog.Attr{grouped}).(*slogHandler)
		nested.groups = h.groups
		return nested
	}
	return &slogHandler{
		logger: h.logger,
		attrs:  append(slices.Clip(h.attrs), attrs...),
		groups: h.groups,
	}
}

// WithGroup returns a new handler with a group name.
// Implements [slog.Handler.WithGroup].
func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &slogHandler{
		logger: h.logger,
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

func addAttr(m map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return
	}

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		target := m
		if a.Key != "" {
			sub, ok := m[a.Key].(map[string]any)
			if !ok {
				sub = make(map[string]any, len(group))
				m[a.Key] = sub
			}
			target = sub
		}
		for _, ga := range group {
			addAttr(target, ga)
		}
		return
	}

	m[a.Key] = v.Any()
}
