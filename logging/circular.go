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

import "reflect"

// CircularValue replaces a context value that refers back to one of its own
// containers, or that nests deeper than maxNesting.
const CircularValue = "[Circular]"

const maxNesting = 64

// visited holds the containers on the path from the root to the value being
// walked. Shared subtrees that do not loop are left alone.
type visited map[uintptr]struct{}

func (v visited) enter(p uintptr) bool {
	if _, ok := v[p]; ok {
		return false
	}
	v[p] = struct{}{}
	return true
}

func mapID(m map[string]any) uintptr {
	return reflect.ValueOf(m).Pointer()
}

// acyclicMap returns a copy of m in which every value that loops back into
// an enclosing container is replaced by [CircularValue].
func acyclicMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	path := visited{}
	path.enter(mapID(m))
	return copyMap(m, path, 0)
}

func copyMap(m map[string]any, path visited, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = acyclic(v, path, depth+1)
	}
	return out
}

func acyclic(v any, path visited, depth int) any {
	if depth > maxNesting {
		return CircularValue
	}
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return acyclicNested(x, path, depth)
	case Fields:
		return acyclicNested(map[string]any(x), path, depth)
	case []any:
		if len(x) == 0 {
			return x
		}
		id := reflect.ValueOf(x).Pointer()
		if !path.enter(id) {
			return CircularValue
		}
		defer delete(path, id)
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = acyclic(e, path, depth+1)
		}
		return out
	}
	if loops(reflect.ValueOf(v), path, depth) {
		return CircularValue
	}
	return v
}

func acyclicNested(m map[string]any, path visited, depth int) any {
	if m == nil {
		return m
	}
	id := mapID(m)
	if !path.enter(id) {
		return CircularValue
	}
	defer delete(path, id)
	return copyMap(m, path, depth)
}

// loops reports whether v reaches one of its own containers, or nests too
// deep to encode.
func loops(v reflect.Value, path visited, depth int) bool {
	if depth > maxNesting {
		return true
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return false
		}
		return loops(v.Elem(), path, depth)
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() || (v.Kind() == reflect.Slice && (v.Len() == 0 || scalarKind(v.Type().Elem()))) {
			return false
		}
		id := v.Pointer()
		if !path.enter(id) {
			return true
		}
		defer delete(path, id)

		switch v.Kind() {
		case reflect.Pointer:
			return loops(v.Elem(), path, depth+1)
		case reflect.Map:
			iter := v.MapRange()
			for iter.Next() {
				if loops(iter.Value(), path, depth+1) {
					return true
				}
			}
		default:
			for i := range v.Len() {
				if loops(v.Index(i), path, depth+1) {
					return true
				}
			}
		}
	case reflect.Array:
		if scalarKind(v.Type().Elem()) {
			return false
		}
		for i := range v.Len() {
			if loops(v.Index(i), path, depth+1) {
				return true
			}
		}
	case reflect.Struct:
		for i := range v.NumField() {
			if loops(v.Field(i), path, depth+1) {
				return true
			}
		}
	}
	return false
}

// scalarKind reports whether values of t cannot hold references.
func scalarKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return false
	}
	return true
}
