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

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	data := []byte(`{
		"connection_percent": [
			{"severity": "critical", "score": 20, "expression": "data.value > 95",
			 "scope": "aggregate", "reasoning": "Connections at {{value}}%",
			 "recommendations": ["Raise max_connections"]},
			{"severity": "high", "score": 10, "expression": "data.value > 80",
			 "scope": "aggregate", "reasoning": "Connections at {{value}}%"}
		],
		"dead_tuples": [
			{"severity": "medium", "score": 5, "expression": "data.n_dead_tup > 100000",
			 "scope": "row", "reasoning": "Table {{relname}} carries dead tuples"}
		]
	}`)

	set, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"connection_percent", "dead_tuples"}, set.Metrics())
	assert.Equal(t, 3, set.Len())
	assert.Len(t, set.Rules("connection_percent"), 2)
	assert.Equal(t, SeverityCritical, set.Rules("connection_percent")[0].Severity)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad severity", `{"m": [{"severity": "fatal", "score": 1, "expression": "true", "reasoning": "x"}]}`},
		{"missing reasoning", `{"m": [{"severity": "high", "score": 1, "expression": "true"}]}`},
		{"negative score", `{"m": [{"severity": "high", "score": -1, "expression": "true", "reasoning": "x"}]}`},
		{"unknown field", `{"m": [{"severity": "high", "score": 1, "expression": "true", "reasoning": "x", "extra": 1}]}`},
		{"bad scope", `{"m": [{"severity": "high", "score": 1, "expression": "true", "reasoning": "x", "scope": "global"}]}`},
		{"empty expression", `{"m": [{"severity": "high", "score": 1, "expression": "", "reasoning": "x"}]}`},
		{"not an object", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestParse_CompileErrorFailsLoad(t *testing.T) {
	data := []byte(`{"m": [{"severity": "high", "score": 1,
		"expression": "data.value >", "reasoning": "x"}]}`)
	_, err := Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling")
}

func TestParse_EmptySet(t *testing.T) {
	set, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Metrics())
}
