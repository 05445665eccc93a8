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
// Package rules parses severity rule sets and evaluates them over a
// findings store. Rule files are JSON, validated against an embedded
// schema; expressions are compiled once at load time and evaluated in a
// restricted environment with no I/O and no host object access.
package rules

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/xeipuuv/gojsonschema"
)

// Severity levels, strongest first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// SeverityRank orders severities for sorting and truncation decisions.
// Higher is more severe.
var SeverityRank = map[string]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// Scope selects what a rule is applied to.
const (
	ScopeRow       = "row"
	ScopeAggregate = "aggregate"
)

// Rule is one severity-assigning predicate over a metric.
type Rule struct {
	Severity        string   `json:"severity"`
	Score           int      `json:"score"`
	Expression      string   `json:"expression"`
	Scope           string   `json:"scope,omitempty"`
	Reasoning       string   `json:"reasoning"`
	Recommendations []string `json:"recommendations"`

	program *vm.Program
}

// Set maps metric names to ordered rule lists. Evaluation order over
// metrics is sorted by name so output is deterministic regardless of
// JSON key order.
type Set struct {
	byMetric map[string][]*Rule
	metrics  []string
}

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": {
      "type": "object",
      "required": ["severity", "score", "expression", "reasoning"],
      "properties": {
        "severity": {"enum": ["critical", "high", "medium", "low", "info"]},
        "score": {"type": "integer", "minimum": 0},
        "expression": {"type": "string", "minLength": 1},
        "scope": {"enum": ["row", "aggregate"]},
        "reasoning": {"type": "string"},
        "recommendations": {"type": "array", "items": {"type": "string"}}
      },
      "additionalProperties": false
    }
  }
}`

// Parse validates and compiles a rule-set file. Schema violations and
// expression compile errors fail the load; nothing is evaluated lazily.
func Parse(data []byte) (*Set, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validating rule set: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid rule set: %s", result.Errors()[0])
	}

	var raw map[string][]*Rule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing rule set: %w", err)
	}

	set := &Set{byMetric: raw}
	for metric, list := range raw {
		set.metrics = append(set.metrics, metric)
		for i, r := range list {
			program, err := expr.Compile(r.Expression,
				expr.Env(map[string]interface{}{}),
				expr.AllowUndefinedVariables())
			if err != nil {
				return nil, fmt.Errorf("metric %s rule %d: compiling %q: %w",
					metric, i, r.Expression, err)
			}
			r.program = program
		}
	}
	sort.Strings(set.metrics)
	return set, nil
}

// Metrics returns the metric names covered by the set, sorted.
func (s *Set) Metrics() []string { return s.metrics }

// Rules returns the ordered rules for a metric.
func (s *Set) Rules(metric string) []*Rule { return s.byMetric[metric] }

// Len returns the total rule count.
func (s *Set) Len() int {
	n := 0
	for _, list := range s.byMetric {
		n += len(list)
	}
	return n
}
