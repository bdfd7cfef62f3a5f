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

import pkgerrors "github.com/pkg/errors"

// ErrorCode allows errors to provide a machine-readable code.
// The code is recorded under the "code" key of [ErrorInfo.Data].
//
// Example:
//
//	type NotFoundError struct {
//		Resource string
//	}
//
//	func (e NotFoundError) Error() string {
//		return fmt.Sprintf("%s not found", e.Resource)
//	}
//
//	func (e NotFoundError) Code() string {
//		return "RESOURCE_NOT_FOUND"
//	}
type ErrorCode interface {
	error
	// Code returns a machine-readable error code.
	Code() string
}

// ErrorDetails allows errors to provide additional structured information.
// The value is recorded under the "details" key of [ErrorInfo.Data].
type ErrorDetails interface {
	error
	// Details returns structured information about the error.
	Details() any
}

// ErrorType allows errors to declare the HTTP status they map to.
// The status is recorded under the "status" key of [ErrorInfo.Data].
type ErrorType interface {
	error
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// StackTracer is implemented by errors that carry the stack of their creation
// site. Errors built with github.com/pkg/errors and github.com/cockroachdb/errors
// satisfy it.
type StackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

type causer interface {
	Cause() error
}

type wrapper interface {
	Unwrap() error
}

type multiWrapper interface {
	Unwrap() []error
}
