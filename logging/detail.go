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

// ErrorKey is the reserved context key whose value becomes the record's
// top-level error instead of part of its context.
const ErrorKey = "error"

// Detail is the optional payload of a log call: either structured [Fields]
// or an error passed through [Err].
//
// Details are applied in order, so a later value for the same key wins:
//
//	logger.Error(ctx, "charge failed",
//	    logging.Fields{"orderId": id, "amount": 42},
//	    logging.Err(err),
//	)
type Detail interface {
	apply(fields map[string]any)
}

// Fields is a free-form context map attached to a record.
// A value under [ErrorKey] is lifted into the record's error.
type Fields map[string]any

func (f Fields) apply(fields map[string]any) {
	for k, v := range f {
		fields[k] = v
	}
}

type errDetail struct {
	err error
}

func (d errDetail) apply(fields map[string]any) {
	if d.err != nil {
		fields[ErrorKey] = d.err
	}
}

// Err attaches err as the record's error. A nil error attaches nothing.
func Err(err error) Detail {
	return errDetail{err: err}
}

// collect merges details into a single map, or returns nil when there is
// nothing to merge.
func collect(details []Detail) map[string]any {
	if len(details) == 0 {
		return nil
	}
	fields := make(map[string]any)
	for _, d := range details {
		if d != nil {
			d.apply(fields)
		}
	}
	return fields
}
