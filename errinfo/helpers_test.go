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

// Test helpers shared by the formatter tests.

type testErrorFull struct {
	message string
	code    string
	status  int
	details map[string]any
}

func (e *testErrorFull) Error() string {
	return e.message
}

func (e *testErrorFull) Code() string {
	return e.code
}

func (e *testErrorFull) HTTPStatus() int {
	return e.status
}

func (e *testErrorFull) Details() any {
	return e.details
}

type quotaError struct {
	Tenant  string `json:"tenant"`
	Limit   int    `json:"limit"`
	Secret  string `json:"-"`
	Message string `json:"message"`
	Cause   error  `json:"cause"`
	private string
}

func (e *quotaError) Error() string {
	return "quota exceeded"
}

func (e *quotaError) Unwrap() error {
	return e.Cause
}

type cycleError struct {
	name string
	next *cycleError
}

func (e *cycleError) Error() string {
	return e.name
}

func (e *cycleError) Unwrap() error {
	if e.next == nil {
		return nil
	}
	return e.next
}

type panicError struct{}

func (panicError) Error() string {
	panic("broken Error method")
}

type legacyCauser struct {
	msg   string
	cause error
}

func (e *legacyCauser) Error() string {
	return e.msg
}

func (e *legacyCauser) Cause() error {
	return e.cause
}
