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

// Package errinfo turns Go errors into structured, serializable values for logs.
//
// [Format] walks an error's causal chain and produces one [ErrorInfo] per
// level:
//
//	info := errinfo.Format(fmt.Errorf("load user: %w", err))
//	// info.Message == "load user: ..."
//	// info.Inner   == the formatted err
//
// Domain errors can implement optional interfaces ([ErrorCode], [ErrorDetails],
// [ErrorType]) to add machine-readable information, and any exported field of
// an error struct ends up in [ErrorInfo.Data]:
//
//	type QuotaError struct {
//		Tenant string `json:"tenant"`
//		Limit  int    `json:"limit"`
//	}
//
//	func (e *QuotaError) Error() string { return "quota exceeded" }
//	func (e *QuotaError) Code() string  { return "QUOTA_EXCEEDED" }
//
//	// Data: {"tenant": "acme", "limit": 10, "code": "QUOTA_EXCEEDED"}
//
// Errors created with github.com/pkg/errors or github.com/cockroachdb/errors
// carry their stack trace into [ErrorInfo.Stacktrace]; hints added with
// cockroachdb's WithHint are collected into Data["hints"].
package errinfo
