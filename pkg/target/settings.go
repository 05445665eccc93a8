// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package target

import (
	"fmt"
	"sort"
)

// SettingKind is the declared type of a setting.
type SettingKind int

const (
	SettingBool SettingKind = iota
	SettingInt
	SettingFloat
	SettingString
)

// SettingSpec declares one known setting key. Checks may only read settings
// that appear in a declared schema; unknown keys are rejected at
// construction time, not silently defaulted at read time.
type SettingSpec struct {
	Key     string
	Kind    SettingKind
	Default interface{}
}

// Schema is the set of declared settings for a plugin.
type Schema map[string]SettingSpec

// BaseSchema holds the settings every plugin understands.
var BaseSchema = Schema{
	"row_limit":            {Key: "row_limit", Kind: SettingInt, Default: 10},
	"check_timeout_secs":   {Key: "check_timeout_secs", Kind: SettingInt, Default: 30},
	"query_timeout_secs":   {Key: "query_timeout_secs", Kind: SettingInt, Default: 30},
	"shell_timeout_secs":   {Key: "shell_timeout_secs", Kind: SettingInt, Default: 20},
	"connect_timeout_secs": {Key: "connect_timeout_secs", Kind: SettingInt, Default: 10},
	"target_timeout_secs":  {Key: "target_timeout_secs", Kind: SettingInt, Default: 600},
}

// Merge returns a new schema containing s plus extra. extra wins on
// duplicate keys.
func (s Schema) Merge(extra Schema) Schema {
	merged := make(Schema, len(s)+len(extra))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// Settings is an immutable snapshot of validated settings. It is safe to
// share across goroutines; there are no setters.
type Settings struct {
	values map[string]interface{}
}

// NewSettings validates values against schema and returns a snapshot with
// schema defaults filled in. Unknown keys or mistyped values are a
// configuration error.
func NewSettings(schema Schema, values map[string]interface{}) (*Settings, error) {
	out := make(map[string]interface{}, len(schema))
	for key, spec := range schema {
		out[key] = spec.Default
	}
	for key, val := range values {
		spec, ok := schema[key]
		if !ok {
			return nil, fmt.Errorf("unknown setting %q", key)
		}
		coerced, err := coerce(spec.Kind, val)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", key, err)
		}
		out[key] = coerced
	}
	return &Settings{values: out}, nil
}

func coerce(kind SettingKind, val interface{}) (interface{}, error) {
	switch kind {
	case SettingBool:
		if b, ok := val.(bool); ok {
			return b, nil
		}
	case SettingInt:
		switch v := val.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		}
	case SettingFloat:
		switch v := val.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case SettingString:
		if s, ok := val.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("value %v has wrong type", val)
}

// Has reports whether key is present in the snapshot.
func (s *Settings) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get returns the raw value for key, or nil when absent.
func (s *Settings) Get(key string) interface{} {
	return s.values[key]
}

// Bool returns the bool setting, or fallback when absent or mistyped.
func (s *Settings) Bool(key string, fallback bool) bool {
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return fallback
}

// Int returns the int setting, or fallback when absent or mistyped.
func (s *Settings) Int(key string, fallback int) int {
	if v, ok := s.values[key].(int); ok {
		return v
	}
	return fallback
}

// Float returns the float setting, or fallback when absent or mistyped.
func (s *Settings) Float(key string, fallback float64) float64 {
	if v, ok := s.values[key].(float64); ok {
		return v
	}
	return fallback
}

// String returns the string setting, or fallback when absent or mistyped.
func (s *Settings) String(key, fallback string) string {
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return fallback
}

// Map returns a copy of all values, for read-only exposure to the rule
// evaluator environment.
func (s *Settings) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys returns the sorted setting keys, mainly for diagnostics.
func (s *Settings) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
