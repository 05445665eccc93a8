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
package finding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Values flow through the engine as decimal.Decimal so numeric precision
// survives rule evaluation. At the JSON boundary decimals become plain
// numbers, and on the way back in numbers become decimals again, so a
// document round-trips to an equal in-memory structure.

// EncodeRun serializes a run to its wire format.
func EncodeRun(r *Run) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// EncodeFinding serializes one finding with decimals rendered as plain
// numbers. Used by the prompt assembler and the report writer.
func EncodeFinding(f *Finding) ([]byte, error) {
	return json.Marshal(wireFinding(f))
}

// DecodeRun parses a wire-format run document.
func DecodeRun(data []byte) (*Run, error) {
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding run document: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalJSON emits triggered_rules as [] rather than null and converts
// decimals in triggering rows.
func (r *Run) MarshalJSON() ([]byte, error) {
	type alias Run
	cp := *r
	cp.TriggeredRules = make([]TriggeredRule, len(r.TriggeredRules))
	for i, tr := range r.TriggeredRules {
		tr.TriggeringRow = wireMap(tr.TriggeringRow)
		cp.TriggeredRules[i] = tr
	}
	return json.Marshal((*alias)(&cp))
}

// UnmarshalJSON decodes with json.Number so numeric values become
// decimals instead of float64.
func (r *Run) UnmarshalJSON(data []byte) error {
	type alias Run
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode((*alias)(r)); err != nil {
		return err
	}
	for i := range r.TriggeredRules {
		r.TriggeredRules[i].TriggeringRow = decimalMap(r.TriggeredRules[i].TriggeringRow)
	}
	return nil
}

// MarshalJSON writes findings as an object keyed by check_id, preserving
// insertion order.
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(wireFinding(s.byID[id]))
		if err != nil {
			return nil, fmt.Errorf("marshaling finding %s: %w", id, err)
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the findings object back in document order.
func (s *Store) UnmarshalJSON(data []byte) error {
	s.order = nil
	s.byID = map[string]*Finding{}
	s.frozen = false

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("findings: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("findings: non-string key %v", keyTok)
		}
		var f Finding
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("decoding finding %s: %w", id, err)
		}
		f.CheckID = id
		decimalFinding(&f)
		if err := s.Put(&f); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON decodes a single finding with json.Number preserved.
func (f *Finding) UnmarshalJSON(data []byte) error {
	type alias Finding
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode((*alias)(f))
}

// wireFinding copies a finding with decimals converted for marshaling.
func wireFinding(f *Finding) *Finding {
	cp := *f
	cp.Metrics = wireMap(f.Metrics)
	cp.Sections = make([]Section, len(f.Sections))
	for i, sec := range f.Sections {
		rows := make([][]interface{}, len(sec.Rows))
		for j, row := range sec.Rows {
			out := make([]interface{}, len(row))
			for k, v := range row {
				out[k] = wireValue(v)
			}
			rows[j] = out
		}
		sec.Rows = rows
		cp.Sections[i] = sec
	}
	return &cp
}

func decimalFinding(f *Finding) {
	f.Metrics = decimalMap(f.Metrics)
	for i := range f.Sections {
		for j, row := range f.Sections[i].Rows {
			for k, v := range row {
				f.Sections[i].Rows[j][k] = decimalValue(v)
			}
		}
	}
}

func wireMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = wireValue(v)
	}
	return out
}

func wireValue(v interface{}) interface{} {
	switch val := v.(type) {
	case decimal.Decimal:
		return json.Number(val.String())
	case map[string]interface{}:
		return wireMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = wireValue(item)
		}
		return out
	default:
		return v
	}
}

func decimalMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	for k, v := range m {
		m[k] = decimalValue(v)
	}
	return m
}

func decimalValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d
		}
		return val.String()
	case map[string]interface{}:
		return decimalMap(val)
	case []interface{}:
		for i, item := range val {
			val[i] = decimalValue(item)
		}
		return val
	default:
		return v
	}
}
