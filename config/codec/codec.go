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

// Package codec converts configuration documents to and from Go values.
//
// Codecs register themselves by [Type] at init time; [Lookup] returns the
// codec for a type.
package codec

// Type names a document format.
type Type string

// Encoder converts a value into a document.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Decoder converts a document into the value pointed to by v. Sources decode
// into a *map[string]any.
type Decoder interface {
	Decode(data []byte, v any) error
}

// Codec is both an [Encoder] and a [Decoder].
type Codec interface {
	Encoder
	Decoder
}
