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

package errinfo

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"time"

	crdberrors "github.com/cockroachdb/errors"
)

// MaxDepth bounds how many chain levels [Format] descends before it gives up.
const MaxDepth = 64

// TimestampLayout is the ISO-8601 layout used for record timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorInfo is the serializable representation of an error and its causes.
type ErrorInfo struct {
	Message    string         `json:"message"`
	Type       string         `json:"type"`
	Stacktrace string         `json:"stacktrace,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Inner      *ErrorInfo     `json:"inner,omitempty"`
}

// Clone returns a copy of e. The Data map and the Inner chain are copied;
// values stored in Data are shared.
func (e *ErrorInfo) Clone() *ErrorInfo {
	if e == nil {
		return nil
	}
	c := *e
	if e.Data != nil {
		c.Data = maps.Clone(e.Data)
	}
	c.Inner = e.Inner.Clone()
	return &c
}

// Depth returns the number of levels in the chain starting at e.
func (e *ErrorInfo) Depth() int {
	n := 0
	for cur := e; cur != nil; cur = cur.Inner {
		n++
	}
	return n
}

// Timestamp formats t as ISO-8601 in UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Format converts err and its causal chain into an [ErrorInfo].
// It returns nil for a nil error and never panics.
//
// For each level Format records the message, the concrete type name, the
// creation stack (when the error implements [StackTracer]) and a Data map built
// from the error's exported fields plus [ErrorCode], [ErrorDetails] and
// [ErrorType]. The cause, found through Unwrap() error or Cause() error, is
// formatted into Inner. Errors joined with errors.Join are listed under
// Data["errors"].
//
// Wrappers that only attach a stack or annotations, and so report the same
// message as their cause, are folded into the cause instead of producing a
// level of their own. These are errors implementing [StackTracer] and the
// wrappers of github.com/pkg/errors and github.com/cockroachdb/errors. Any
// other wrapper keeps its level and type name, even when its message repeats
// its cause's.
//
// A chain that leads back to an error already formatted stops there and the
// level is marked with Data["truncated"] = true. The same happens after
// [MaxDepth] levels.
func Format(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	w := &walker{seen: make(map[visitKey]struct{})}
	info := w.format(err, 0)
	if !w.truncated {
		annotate(info, err)
	}
	return info
}

// FromValue converts an arbitrary value found under an "error" key.
// Errors are formatted, ErrorInfo values are used as they are, and anything
// else becomes a single level holding its printed form.
func FromValue(v any) *ErrorInfo {
	switch x := v.(type) {
	case nil:
		return nil
	case *ErrorInfo:
		return x
	case ErrorInfo:
		return &x
	case error:
		return Format(x)
	case string:
		return &ErrorInfo{Message: x, Type: "string"}
	default:
		return &ErrorInfo{Message: sprint(x), Type: typeName(x)}
	}
}

type visitKey struct {
	typ reflect.Type
	ptr uintptr
}

type walker struct {
	seen      map[visitKey]struct{}
	truncated bool
}

func keyOf(err error) (visitKey, bool) {
	v := reflect.ValueOf(err)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return visitKey{}, false
	}
	return visitKey{typ: v.Type(), ptr: v.Pointer()}, true
}

func (w *walker) mark(err error) {
	if k, ok := keyOf(err); ok {
		w.seen[k] = struct{}{}
	}
}

func (w *walker) visited(err error) bool {
	k, ok := keyOf(err)
	if !ok {
		return false
	}
	_, found := w.seen[k]
	return found
}

func (w *walker) format(err error, depth int) *ErrorInfo {
	w.mark(err)

	stack := stackOf(err)
	for {
		cause := unwrap(err)
		if cause == nil || w.visited(cause) || !transparent(err) || message(cause) != message(err) || len(dataOf(err)) > 0 {
			break
		}
		w.mark(cause)
		err = cause
		if s := stackOf(err); s != "" {
			stack = s
		}
	}

	info := &ErrorInfo{
		Message:    message(err),
		Type:       typeName(err),
		Stacktrace: stack,
	}
	data := dataOf(err)

	if errs := unwrapMulti(err); len(errs) > 0 {
		list := make([]*ErrorInfo, 0, len(errs))
		for _, e := range errs {
			if e == nil {
				continue
			}
			if depth+1 >= MaxDepth || w.visited(e) {
				w.truncated = true
				data["truncated"] = true
				continue
			}
			list = append(list, w.format(e, depth+1))
		}
		data["errors"] = list
	}

	if cause := unwrap(err); cause != nil {
		if depth+1 >= MaxDepth || w.visited(cause) {
			w.truncated = true
			data["truncated"] = true
		} else {
			info.Inner = w.format(cause, depth+1)
		}
	}

	if len(data) > 0 {
		info.Data = data
	}
	return info
}

// annotate adds hints and user-facing details attached anywhere in the chain
// with github.com/cockroachdb/errors.
func annotate(info *ErrorInfo, err error) {
	var hints, details []string
	func() {
		defer func() { _ = recover() }()
		hints = crdberrors.GetAllHints(err)
		details = crdberrors.GetAllDetails(err)
	}()
	if len(hints) == 0 && len(details) == 0 {
		return
	}
	if info.Data == nil {
		info.Data = make(map[string]any, 2)
	}
	if len(hints) > 0 {
		info.Data["hints"] = hints
	}
	if len(details) > 0 {
		key := "details"
		if _, taken := info.Data[key]; taken {
			key = "errorDetails"
		}
		info.Data[key] = details
	}
}

func message(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprintf("!PANIC(Error): %v", r)
		}
	}()
	return err.Error()
}

func sprint(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("!PANIC(String): %v", r)
		}
	}()
	return fmt.Sprint(v)
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	return strings.TrimLeft(t.String(), "*")
}

// wrapperPackages hold wrapper types that only attach a stack trace or
// annotations to their cause.
var wrapperPackages = []string{
	"github.com/pkg/errors",
	"github.com/cockroachdb/errors",
}

// transparent reports whether err adds nothing but a stack trace or
// annotations to its cause, so that both can be shown as one level. Other
// wrappers keep their own level even when they repeat the cause's message.
func transparent(err error) bool {
	if _, ok := err.(StackTracer); ok {
		return true
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	pkg := t.PkgPath()
	for _, p := range wrapperPackages {
		if pkg == p || strings.HasPrefix(pkg, p+"/") {
			return true
		}
	}
	return false
}

func stackOf(err error) (stack string) {
	st, ok := err.(StackTracer)
	if !ok {
		return ""
	}
	defer func() {
		if recover() != nil {
			stack = ""
		}
	}()
	return strings.TrimPrefix(fmt.Sprintf("%+v", st.StackTrace()), "\n")
}

func unwrap(err error) (cause error) {
	defer func() {
		if recover() != nil {
			cause = nil
		}
	}()
	switch x := err.(type) {
	case wrapper:
		return x.Unwrap()
	case causer:
		return x.Cause()
	}
	return nil
}

func unwrapMulti(err error) (errs []error) {
	defer func() {
		if recover() != nil {
			errs = nil
		}
	}()
	if m, ok := err.(multiWrapper); ok {
		return m.Unwrap()
	}
	return nil
}

// capture calls fn, reporting false when it panics.
func capture[T any](fn func() T) (v T, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn(), true
}

func dataOf(err error) map[string]any {
	data := fieldsOf(err)
	if data == nil {
		data = make(map[string]any)
	}
	if c, ok := err.(ErrorCode); ok {
		if code, ok := capture(c.Code); ok && code != "" {
			data["code"] = code
		}
	}
	if d, ok := err.(ErrorDetails); ok {
		if details, ok := capture(d.Details); ok && details != nil {
			data["details"] = details
		}
	}
	if s, ok := err.(ErrorType); ok {
		if status, ok := capture(s.HTTPStatus); ok && status != 0 {
			data["status"] = status
		}
	}
	return data
}

var (
	errorType      = reflect.TypeFor[error]()
	reservedFields = map[string]struct{}{
		"name":       {},
		"message":    {},
		"msg":        {},
		"stack":      {},
		"stacktrace": {},
	}
)

// fieldsOf returns the exported fields of the struct behind err, keyed by
// their JSON name. Fields holding errors belong to the chain and are skipped.
func fieldsOf(err error) map[string]any {
	v := reflect.ValueOf(err)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var out map[string]any
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if _, reserved := reservedFields[strings.ToLower(name)]; reserved {
			continue
		}
		if holdsError(f.Type) {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Interface && !fv.IsNil() {
			if _, isErr := fv.Interface().(error); isErr {
				continue
			}
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[name] = fv.Interface()
	}
	return out
}

func holdsError(t reflect.Type) bool {
	if t.Implements(errorType) {
		return true
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Implements(errorType)
	}
	return false
}
