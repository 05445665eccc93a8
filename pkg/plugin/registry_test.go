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

package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/target"
)

func noopCheck(ctx context.Context, cc *CheckContext) (*finding.Finding, error) {
	return &finding.Finding{Status: finding.StatusOK}, nil
}

func minimalPlugin() *Plugin {
	return &Plugin{
		ID:         "pg",
		Technology: target.TechPostgres,
		Checks:     map[string]CheckFunc{"c1": noopCheck},
		Reports: map[string]*Report{
			"standard": {
				Name: "standard",
				Actions: []Action{
					{Kind: ActionRunCheck, Name: "c1"},
				},
			},
		},
		RuleSetJSON: []byte(`{"m": [{"severity": "high", "score": 10,
			"expression": "data.value > 1", "scope": "aggregate", "reasoning": "x"}]}`),
	}
}

func TestNewRegistry_Resolve(t *testing.T) {
	r, err := NewRegistry(minimalPlugin())
	require.NoError(t, err)

	res, err := r.Resolve(target.TechPostgres, "standard")
	require.NoError(t, err)
	assert.Equal(t, "pg", res.Plugin.ID)
	assert.Len(t, res.Actions, 1)
	require.NotNil(t, res.RuleSet)
	assert.Equal(t, 1, res.RuleSet.Len())
}

func TestResolve_UnknownPlugin(t *testing.T) {
	r, err := NewRegistry(minimalPlugin())
	require.NoError(t, err)

	_, err = r.Resolve(target.TechMySQL, "standard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_plugin")
}

func TestResolve_UnknownReport(t *testing.T) {
	r, err := NewRegistry(minimalPlugin())
	require.NoError(t, err)

	_, err = r.Resolve(target.TechPostgres, "deep_dive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_report")
}

func TestNewRegistry_RejectsBadPlugins(t *testing.T) {
	t.Run("report references unknown check", func(t *testing.T) {
		p := minimalPlugin()
		p.Reports["standard"].Actions = append(p.Reports["standard"].Actions,
			Action{Kind: ActionRunCheck, Name: "ghost"})
		_, err := NewRegistry(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown check")
	})

	t.Run("report references unknown static text", func(t *testing.T) {
		p := minimalPlugin()
		p.Reports["standard"].Actions = append(p.Reports["standard"].Actions,
			Action{Kind: ActionStaticText, Name: "missing"})
		_, err := NewRegistry(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown static text")
	})

	t.Run("malformed rule set", func(t *testing.T) {
		p := minimalPlugin()
		p.RuleSetJSON = []byte(`{"m": [{"severity": "fatal"}]}`)
		_, err := NewRegistry(p)
		require.Error(t, err)
	})

	t.Run("duplicate technology", func(t *testing.T) {
		_, err := NewRegistry(minimalPlugin(), minimalPlugin())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("unknown technology", func(t *testing.T) {
		p := minimalPlugin()
		p.Technology = "oracle"
		_, err := NewRegistry(p)
		require.Error(t, err)
	})
}

func TestGuard_Allows(t *testing.T) {
	schema := target.BaseSchema.Merge(target.Schema{
		"has_ext": {Key: "has_ext", Kind: target.SettingBool, Default: false},
	})
	settings, err := target.NewSettings(schema, map[string]interface{}{"has_ext": true})
	require.NoError(t, err)

	tests := []struct {
		name  string
		guard *Guard
		want  bool
	}{
		{"nil guard always allows", nil, true},
		{"matching bool", &Guard{Setting: "has_ext", Equals: true}, true},
		{"non-matching bool", &Guard{Setting: "has_ext", Equals: false}, false},
		{"unknown setting never allows", &Guard{Setting: "missing", Equals: true}, false},
		{"matching int", &Guard{Setting: "row_limit", Equals: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guard.Allows(settings))
		})
	}
}

func TestGuard_NilSettings(t *testing.T) {
	g := &Guard{Setting: "x", Equals: 1}
	assert.False(t, g.Allows(nil))
}

func TestPlugin_Schema(t *testing.T) {
	p := minimalPlugin()
	p.Settings = target.Schema{
		"custom": {Key: "custom", Kind: target.SettingInt, Default: 5},
	}

	schema := p.Schema()
	assert.Contains(t, schema, "row_limit")
	assert.Contains(t, schema, "custom")
}

func TestPlugin_ReportNames(t *testing.T) {
	p := minimalPlugin()
	p.Reports["minimal"] = &Report{Name: "minimal"}
	assert.Equal(t, []string{"minimal", "standard"}, p.ReportNames())
}
