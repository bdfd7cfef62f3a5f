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
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"

	"ctxlog.dev/ctxlog/config/codec"
	"ctxlog.dev/ctxlog/config/source"
)

// Option configures a [Config].
type Option func(c *Config) error

// Config merges configuration from ordered sources, later sources overriding
// earlier ones, and optionally binds the result to a struct. Keys are
// case-insensitive. A Config is safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	values map[string]any

	sources    []Source
	binding    any
	tagName    string
	schema     *jsonschema.Schema
	validators []func(map[string]any) error
}

// WithSource appends a source.
func WithSource(src Source) Option {
	return func(c *Config) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFile appends a file source whose format is taken from the extension
// (.yaml, .yml, .json or .toml).
func WithFile(path string) Option {
	return func(c *Config) error {
		format, err := detectFormat(path)
		if err != nil {
			return err
		}
		return WithFileAs(path, format)(c)
	}
}

// WithFileAs appends a file source decoded as format.
func WithFileAs(path string, format codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.Lookup(format)
		if err != nil {
			return err
		}
		c.sources = append(c.sources, source.NewFile(path, dec))
		return nil
	}
}

// WithContent appends an in-memory document.
func WithContent(data []byte, format codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.Lookup(format)
		if err != nil {
			return err
		}
		c.sources = append(c.sources, source.NewContent(data, dec))
		return nil
	}
}

// WithEnv appends the environment variables starting with prefix.
//
//	config.WithEnv("CTXLOG_") // CTXLOG_KAFKA_BATCHSIZE=50 sets kafka.batchsize
func WithEnv(prefix string) Option {
	return WithSource(source.NewEnv(prefix))
}

// WithBinding decodes the merged values into v, a pointer to a struct, on
// every successful Load. Fields are matched by the `config` tag, zero fields
// take their `default` tag, and v's Validate method runs when it has one.
func WithBinding(v any) Option {
	return func(c *Config) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return errors.Newf("binding must be a non-nil pointer to a struct, got %T", v)
		}
		c.binding = v
		return nil
	}
}

// WithTag changes the struct tag used for binding. Default: "config".
func WithTag(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = name
		return nil
	}
}

// WithJSONSchema validates the merged values against a JSON Schema document
// before binding.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		const name = "config-schema.json"

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return errors.Wrap(err, "parse json schema")
		}
		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource(name, doc); err != nil {
			return errors.Wrap(err, "add json schema")
		}
		compiled, err := compiler.Compile(name)
		if err != nil {
			return errors.Wrap(err, "compile json schema")
		}
		c.schema = compiled
		return nil
	}
}

// WithValidator adds a check run on the merged values.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		if fn == nil {
			return errors.New("validator cannot be nil")
		}
		c.validators = append(c.validators, fn)
		return nil
	}
}

const defaultTag = "config"

// New returns a Config with the given options. Nothing is loaded yet.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		values:  map[string]any{},
		tagName: defaultTag,
	}

	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return c
}

// Validator is implemented by bound structs that check themselves.
type Validator interface {
	Validate() error
}

// Load reads every source in order, merges them, validates the result and
// binds it. The previous values are kept when any step fails.
func (c *Config) Load(ctx context.Context) error {
	values, err := c.loadSources(ctx)
	if err != nil {
		return err
	}

	if c.schema != nil {
		if err = c.validateSchema(values); err != nil {
			return NewError("json-schema", "validate", err)
		}
	}

	for i, fn := range c.validators {
		if err = runValidator(fn, values); err != nil {
			return NewError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		// A failed Load leaves the bound struct untouched.
		staged := reflect.New(reflect.TypeOf(c.binding).Elem())
		if err = c.decode(values, staged.Interface()); err != nil {
			return err
		}
		if v, ok := staged.Interface().(Validator); ok {
			if err = v.Validate(); err != nil {
				return NewError("binding", "validate", err)
			}
		}
		reflect.ValueOf(c.binding).Elem().Set(staged.Elem())
	}

	c.values = values
	return nil
}

// MustLoad is like [Config.Load] but panics on error.
func (c *Config) MustLoad(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		panic(err)
	}
}

func (c *Config) loadSources(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conf, err := src.Load(ctx)
		if err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err = mergo.Map(&merged, normalizeKeys(conf), mergo.WithOverride); err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}
	return merged, nil
}

func (c *Config) validateSchema(values map[string]any) error {
	// Round-trip through JSON so YAML and TOML scalars become JSON types.
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(values)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return c.schema.Validate(doc)
}

func runValidator(fn func(map[string]any) error, values map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("validator panic: %v", r)
		}
	}()
	return fn(values)
}

func (c *Config) decode(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return NewError("binding", "bind", err)
	}
	if err = dec.Decode(values); err != nil {
		return NewError("binding", "bind", err)
	}
	if err = applyDefaults(target); err != nil {
		return NewError("binding", "defaults", err)
	}
	return nil
}

// normalizeKeys lower-cases keys recursively so sources merge regardless of
// spelling.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

// Values returns a copy of the top level of the merged values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Get returns the value at a dot-separated, case-insensitive path such as
// "kafka.sasl.mechanism", or nil.
func (c *Config) Get(path string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var current any = c.values
	for _, part := range strings.Split(strings.ToLower(path), ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		if current, ok = m[part]; !ok {
			return nil
		}
	}
	return current
}

// String returns the value at path converted with spf13/cast, or "".
func (c *Config) String(path string) string {
	return cast.ToString(c.Get(path))
}

// Int returns the value at path as an int, or 0.
func (c *Config) Int(path string) int {
	return cast.ToInt(c.Get(path))
}

// Bool returns the value at path as a bool, or false.
func (c *Config) Bool(path string) bool {
	return cast.ToBool(c.Get(path))
}

// Duration returns the value at path as a duration, or 0.
func (c *Config) Duration(path string) time.Duration {
	return cast.ToDuration(c.Get(path))
}

// StringSlice returns the value at path as a slice; a string is split on commas.
func (c *Config) StringSlice(path string) []string {
	v := c.Get(path)
	if s, ok := v.(string); ok {
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return cast.ToStringSlice(v)
}
