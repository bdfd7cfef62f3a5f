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
package config

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrConstraint marks a settings field that violates its validate tag.
var ErrConstraint = errors.New("constraint violated")

var (
	tagValidatorOnce sync.Once
	tagValidator     *validator.Validate

	kafkaTopicPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// structValidator names fields after their config tag so errors point at
// the key a user wrote.
func structValidator() *validator.Validate {
	tagValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get(defaultTag); name != "" && name != "-" {
				return name
			}
			return strings.ToLower(fld.Name)
		})
		_ = v.RegisterValidation("kafkatopic", func(fl validator.FieldLevel) bool {
			return kafkaTopicPattern.MatchString(fl.Field().String())
		})
		tagValidator = v
	})
	return tagValidator
}

// validateTags checks v against its validate tags. Every violation becomes
// one [Error] whose field is prefixed by section.
func validateTags(section string, v any) []error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{NewFieldError("settings", section, "validate", err)}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := section
		if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
			field += "." + rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out = append(out, NewFieldError("settings", field, "validate",
			errors.Wrapf(ErrConstraint, "%v fails %s", fe.Value(), rule)))
	}
	return out
}
