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

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/target"
)

func okCheck(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return &finding.Finding{Status: finding.StatusOK}, nil
}

func testPlugin(checks map[string]plugin.CheckFunc) *plugin.Plugin {
	return &plugin.Plugin{
		ID:          "test",
		Technology:  target.TechPostgres,
		Checks:      checks,
		StaticTexts: map[string]string{"intro": "Report preamble."},
	}
}

func runActions(names ...string) []plugin.Action {
	actions := make([]plugin.Action, 0, len(names))
	for _, n := range names {
		actions = append(actions, plugin.Action{Kind: plugin.ActionRunCheck, Name: n})
	}
	return actions
}

func testSettings(t *testing.T) *target.Settings {
	t.Helper()
	s, err := target.NewSettings(target.BaseSchema, nil)
	require.NoError(t, err)
	return s
}

func TestRun_EveryCheckYieldsAFinding(t *testing.T) {
	p := testPlugin(map[string]plugin.CheckFunc{
		"good": okCheck,
		"bad": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			return nil, connector.NewError(connector.KindSyntax, "bad statement", nil)
		},
	})

	r := New(Config{Settings: testSettings(t)})
	out, err := r.Run(context.Background(), p, runActions("good", "bad"))
	require.NoError(t, err)

	assert.Equal(t, 2, out.Findings.Len())
	assert.True(t, out.Findings.Frozen())
	assert.Equal(t, finding.StatusOK, out.Findings.Get("good").Status)

	bad := out.Findings.Get("bad")
	assert.Equal(t, finding.StatusError, bad.Status)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "syntax", bad.Error.Kind)
	// A syntax failure is not fatal: nothing was skipped.
	assert.Zero(t, out.SkippedConnector)
}

func TestRun_AuthFailureSkipsRemaining(t *testing.T) {
	calls := map[string]int{}
	p := testPlugin(map[string]plugin.CheckFunc{
		"first": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			calls["first"]++
			return &finding.Finding{Status: finding.StatusOK}, nil
		},
		"auth_fails": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			calls["auth_fails"]++
			return nil, connector.NewError(connector.KindAuth, "password expired", nil)
		},
		"never_runs": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			calls["never_runs"]++
			return &finding.Finding{Status: finding.StatusOK}, nil
		},
	})

	r := New(Config{Settings: testSettings(t)})
	out, err := r.Run(context.Background(), p, runActions("first", "auth_fails", "never_runs"))
	require.NoError(t, err)

	assert.Equal(t, 1, calls["first"])
	assert.Equal(t, 1, calls["auth_fails"])
	assert.Zero(t, calls["never_runs"], "checks after a fatal error must not touch the connector")

	assert.Equal(t, finding.StatusOK, out.Findings.Get("first").Status)
	assert.Equal(t, finding.StatusError, out.Findings.Get("auth_fails").Status)
	assert.Equal(t, finding.StatusSkipped, out.Findings.Get("never_runs").Status)
	assert.Equal(t, 1, out.SkippedConnector)
}

func TestRun_CancellationGrantsGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := testPlugin(map[string]plugin.CheckFunc{
		"in_flight": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			cancel()
			time.Sleep(20 * time.Millisecond)
			return &finding.Finding{Status: finding.StatusOK}, nil
		},
		"after": okCheck,
	})

	r := New(Config{Settings: testSettings(t), CancelGrace: time.Second})
	out, err := r.Run(ctx, p, runActions("in_flight", "after"))
	require.NoError(t, err)

	// The in-flight check finished inside the grace window; the next one
	// was skipped because the run was already cancelled.
	assert.Equal(t, finding.StatusOK, out.Findings.Get("in_flight").Status)
	assert.Equal(t, finding.StatusSkipped, out.Findings.Get("after").Status)
}

func TestRun_CancellationAbandonsSlowCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	p := testPlugin(map[string]plugin.CheckFunc{
		"stuck": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			cancel()
			<-release
			return &finding.Finding{Status: finding.StatusOK}, nil
		},
	})

	r := New(Config{Settings: testSettings(t), CancelGrace: 10 * time.Millisecond})
	out, err := r.Run(ctx, p, runActions("stuck"))
	require.NoError(t, err)

	f := out.Findings.Get("stuck")
	assert.Equal(t, finding.StatusSkipped, f.Status)
	assert.Equal(t, "run cancelled", f.Error.Message)
}

func TestRun_PanicIsolated(t *testing.T) {
	p := testPlugin(map[string]plugin.CheckFunc{
		"panics": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			panic("check bug")
		},
		"survives": okCheck,
	})

	r := New(Config{Settings: testSettings(t)})
	out, err := r.Run(context.Background(), p, runActions("panics", "survives"))
	require.NoError(t, err)

	assert.Equal(t, finding.StatusError, out.Findings.Get("panics").Status)
	assert.Contains(t, out.Findings.Get("panics").Error.Message, "panicked")
	assert.Equal(t, finding.StatusOK, out.Findings.Get("survives").Status)
}

func TestRun_GuardSkipsAction(t *testing.T) {
	p := testPlugin(map[string]plugin.CheckFunc{"guarded": okCheck})

	settings, err := target.NewSettings(target.BaseSchema.Merge(target.Schema{
		"has_extension": {Key: "has_extension", Kind: target.SettingBool, Default: false},
	}), nil)
	require.NoError(t, err)

	actions := []plugin.Action{{
		Kind:  plugin.ActionRunCheck,
		Name:  "guarded",
		Guard: &plugin.Guard{Setting: "has_extension", Equals: true},
	}}

	r := New(Config{Settings: settings})
	out, err := r.Run(context.Background(), p, actions)
	require.NoError(t, err)

	// Guarded-off actions leave no finding and no item.
	assert.Zero(t, out.Findings.Len())
	assert.Empty(t, out.Items)
}

func TestRun_ItemsFollowActionOrder(t *testing.T) {
	p := testPlugin(map[string]plugin.CheckFunc{"c1": okCheck})

	actions := []plugin.Action{
		{Kind: plugin.ActionHeader, Name: "Capacity"},
		{Kind: plugin.ActionStaticText, Name: "intro"},
		{Kind: plugin.ActionRunCheck, Name: "c1"},
	}

	r := New(Config{Settings: testSettings(t)})
	out, err := r.Run(context.Background(), p, actions)
	require.NoError(t, err)

	require.Len(t, out.Items, 3)
	assert.Equal(t, plugin.ActionHeader, out.Items[0].Kind)
	assert.Equal(t, "Capacity", out.Items[0].Text)
	assert.Equal(t, "Report preamble.", out.Items[1].Text)
	assert.Equal(t, "c1", out.Items[2].CheckID)
}

func TestRun_UnregisteredCheck(t *testing.T) {
	p := testPlugin(map[string]plugin.CheckFunc{})

	r := New(Config{Settings: testSettings(t)})
	out, err := r.Run(context.Background(), p, runActions("ghost"))
	require.NoError(t, err)

	f := out.Findings.Get("ghost")
	assert.Equal(t, finding.StatusError, f.Status)
	assert.Contains(t, f.Error.Message, "not registered")
}

func TestRun_NormalizesSloppyFindings(t *testing.T) {
	p := testPlugin(map[string]plugin.CheckFunc{
		"no_status": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			return &finding.Finding{}, nil
		},
		"nil_finding": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
			return nil, nil
		},
	})

	r := New(Config{Settings: testSettings(t)})
	out, err := r.Run(context.Background(), p, runActions("no_status", "nil_finding"))
	require.NoError(t, err)

	assert.Equal(t, finding.StatusError, out.Findings.Get("no_status").Status)
	assert.Equal(t, finding.StatusError, out.Findings.Get("nil_finding").Status)
}
