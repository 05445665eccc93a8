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

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/factory"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/target"
	"github.com/teradata-labs/pulse/pkg/trend"
)

func testRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	r, err := plugin.NewRegistry(&plugin.Plugin{
		ID:         "pg",
		Technology: target.TechPostgres,
		Checks: map[string]plugin.CheckFunc{
			"noop": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
				return &finding.Finding{Status: finding.StatusOK}, nil
			},
		},
		Reports: map[string]*plugin.Report{
			"standard": {Name: "standard", Actions: []plugin.Action{
				{Kind: plugin.ActionRunCheck, Name: "noop"},
			}},
		},
	})
	require.NoError(t, err)
	return r
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	o, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)
	require.NotNil(t, o)
}

func TestRunOne_InvalidTargetIsConfigError(t *testing.T) {
	o, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	res := o.RunOne(context.Background(), Job{
		Target: &target.Target{
			Technology: target.TechPostgres,
			Endpoints:  []target.Endpoint{{Host: "db1"}},
			// Missing company id.
		},
	})
	require.Error(t, res.Err)
	assert.True(t, res.ConfigErr)
	assert.Nil(t, res.Run)
}

func TestRunOne_UnknownPluginIsConfigError(t *testing.T) {
	o, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	res := o.RunOne(context.Background(), Job{
		Target: &target.Target{
			Technology: target.TechMySQL,
			Endpoints:  []target.Endpoint{{Host: "db1"}},
			CompanyID:  "acme",
		},
	})
	require.Error(t, res.Err)
	assert.True(t, res.ConfigErr)
	assert.Contains(t, res.Err.Error(), "unknown_plugin")
}

func TestRunOne_UnknownReportIsConfigError(t *testing.T) {
	o, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	res := o.RunOne(context.Background(), Job{
		Target: &target.Target{
			Technology: target.TechPostgres,
			Endpoints:  []target.Endpoint{{Host: "db1"}},
			CompanyID:  "acme",
		},
		Report: "deep_dive",
	})
	require.Error(t, res.Err)
	assert.True(t, res.ConfigErr)
	assert.Contains(t, res.Err.Error(), "unknown_report")
}

func TestRunOne_BadSettingsIsConfigError(t *testing.T) {
	o, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	res := o.RunOne(context.Background(), Job{
		Target: &target.Target{
			Technology: target.TechPostgres,
			Endpoints:  []target.Endpoint{{Host: "db1"}},
			CompanyID:  "acme",
		},
		Settings: map[string]interface{}{"no_such_setting": 1},
	})
	require.Error(t, res.Err)
	assert.True(t, res.ConfigErr)
	assert.Contains(t, res.Err.Error(), "invalid settings")
}

func TestRunAll_ResultPerJobInOrder(t *testing.T) {
	o, err := New(Config{Registry: testRegistry(t), Workers: 2})
	require.NoError(t, err)

	jobs := []Job{
		{Target: &target.Target{Technology: target.TechMySQL,
			Endpoints: []target.Endpoint{{Host: "a"}}, CompanyID: "acme"}},
		{Target: &target.Target{Technology: "oracle",
			Endpoints: []target.Endpoint{{Host: "b"}}, CompanyID: "acme"}},
	}

	results, err := o.RunAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// One failed target never hides the other's result.
	assert.Equal(t, "a", results[0].Target.Primary().Host)
	assert.Contains(t, results[0].Err.Error(), "unknown_plugin")
	assert.Equal(t, "b", results[1].Target.Primary().Host)
	assert.Contains(t, results[1].Err.Error(), "unknown technology")
}

func TestOutcome(t *testing.T) {
	store := finding.NewStore()
	require.NoError(t, store.Put(&finding.Finding{CheckID: "c", Status: finding.StatusOK}))
	partialRun := &finding.Run{RunID: "r", Findings: store}

	results := []Result{
		{},
		{Err: errors.New("boom")},
		{Err: errors.New("connector lost"), Run: partialRun},
		{Err: errors.New("boom"), ConfigErr: true},
	}
	succeeded, partial, failed := Outcome(results)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, partial)
	assert.Equal(t, 2, failed)
}

// scriptedConnector serves canned results keyed by SQL text.
type scriptedConnector struct {
	meta    *connector.Metadata
	results map[string]*connector.Result
}

func (s *scriptedConnector) Name() string { return "scripted" }

func (s *scriptedConnector) Describe(context.Context) (*connector.Metadata, error) {
	return s.meta, nil
}

func (s *scriptedConnector) Ping(context.Context) error { return nil }

func (s *scriptedConnector) Capabilities() connector.Capabilities {
	return connector.Capabilities{SupportsSQL: true}
}

func (s *scriptedConnector) Close() error { return nil }

func (s *scriptedConnector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	res, ok := s.results[q.SQL]
	if !ok {
		return nil, connector.NewError(connector.KindSyntax, "unexpected query "+q.SQL, nil)
	}
	return res, nil
}

func opener(conn connector.Connector) func(context.Context, *target.Target, factory.Options) (connector.Connector, error) {
	return func(context.Context, *target.Target, factory.Options) (connector.Connector, error) {
		return conn, nil
	}
}

func pgTarget() *target.Target {
	return &target.Target{
		Technology: target.TechPostgres,
		Endpoints:  []target.Endpoint{{Host: "db1", Port: 5432}},
		CompanyID:  "acme",
	}
}

type recordingStore struct {
	records []*trend.Record
}

func (s *recordingStore) Ingest(ctx context.Context, rec *trend.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) Close() error { return nil }

func endToEndRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	r, err := plugin.NewRegistry(&plugin.Plugin{
		ID:         "pg",
		Technology: target.TechPostgres,
		Checks: map[string]plugin.CheckFunc{
			"connection_usage": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
				res, err := cc.Connector.Query(ctx, connector.Query{SQL: "SELECT usage"})
				if err != nil {
					return nil, err
				}
				return &finding.Finding{
					CheckID: "connection_usage",
					Status:  finding.StatusOK,
					Metrics: map[string]interface{}{"connection_percent": res.Rows[0][0]},
				}, nil
			},
			"cache_hit_ratio": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
				res, err := cc.Connector.Query(ctx, connector.Query{SQL: "SELECT cache"})
				if err != nil {
					return nil, err
				}
				return &finding.Finding{
					CheckID: "cache_hit_ratio",
					Status:  finding.StatusOK,
					Metrics: map[string]interface{}{"cache_hit_percent": res.Rows[0][0]},
				}, nil
			},
		},
		Reports: map[string]*plugin.Report{
			"standard": {Name: "standard", Actions: []plugin.Action{
				{Kind: plugin.ActionHeader, Name: "Connections"},
				{Kind: plugin.ActionRunCheck, Name: "connection_usage"},
				{Kind: plugin.ActionRunCheck, Name: "cache_hit_ratio"},
			}},
		},
		RuleSetJSON: []byte(`{"connection_percent": [{"severity": "high", "score": 10,
			"expression": "data.value > 90", "scope": "aggregate",
			"reasoning": "connection usage at {{connection_percent}}%",
			"recommendations": ["add a connection pooler"]}]}`),
	})
	require.NoError(t, err)
	return r
}

func TestRunOne_EndToEnd(t *testing.T) {
	conn := &scriptedConnector{
		meta: &connector.Metadata{
			Version: "16.3", Major: 16, Minor: 3,
			Environment: "production", NodeCount: 1,
		},
		results: map[string]*connector.Result{
			"SELECT usage": {Columns: []string{"pct"}, Rows: [][]interface{}{{decimal.NewFromInt(95)}}},
			"SELECT cache": {Columns: []string{"pct"}, Rows: [][]interface{}{{decimal.NewFromFloat(99.1)}}},
		},
	}
	o, err := New(Config{Registry: endToEndRegistry(t), Opener: opener(conn)})
	require.NoError(t, err)

	res := o.RunOne(context.Background(), Job{Target: pgTarget()})
	require.NoError(t, res.Err)
	require.NotNil(t, res.Run)

	require.Len(t, res.Run.TriggeredRules, 1)
	tr := res.Run.TriggeredRules[0]
	assert.Equal(t, "connection_usage", tr.CheckID)
	assert.Equal(t, "high", tr.Severity)
	assert.Equal(t, res.Run.RunID, tr.RunID)

	// One high trigger scores 90, with or without a trend store.
	assert.Equal(t, 90, res.Run.HealthScore)
	assert.Contains(t, res.Report, "Health score: 90/100")
	assert.Contains(t, res.Report, "[HIGH] connection_usage / connection_percent")
	assert.Contains(t, res.Report, "connection usage at 95%")
}

func TestRunOne_ConnectorLossMidRunIsPartial(t *testing.T) {
	calls := map[string]int{}
	r, err := plugin.NewRegistry(&plugin.Plugin{
		ID:         "pg",
		Technology: target.TechPostgres,
		Checks: map[string]plugin.CheckFunc{
			"first": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
				calls["first"]++
				return &finding.Finding{Status: finding.StatusOK}, nil
			},
			"breaks": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
				calls["breaks"]++
				return nil, connector.NewError(connector.KindAuth, "session revoked", nil)
			},
			"never_runs": func(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
				calls["never_runs"]++
				return &finding.Finding{Status: finding.StatusOK}, nil
			},
		},
		Reports: map[string]*plugin.Report{
			"standard": {Name: "standard", Actions: []plugin.Action{
				{Kind: plugin.ActionRunCheck, Name: "first"},
				{Kind: plugin.ActionRunCheck, Name: "breaks"},
				{Kind: plugin.ActionRunCheck, Name: "never_runs"},
			}},
		},
	})
	require.NoError(t, err)

	store := &recordingStore{}
	ingester := trend.NewIngester(trend.Config{Store: store, SpoolDir: t.TempDir()})
	o, err := New(Config{
		Registry: r,
		Ingester: ingester,
		Opener:   opener(&scriptedConnector{meta: &connector.Metadata{Environment: "production"}}),
	})
	require.NoError(t, err)

	res := o.RunOne(context.Background(), Job{Target: pgTarget()})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "checks skipped")
	require.NotNil(t, res.Run)
	assert.Zero(t, calls["never_runs"])

	// The partial run still landed in the trend store.
	require.Len(t, store.records, 1)
	assert.Equal(t, res.Run.RunID, store.records[0].Run.RunID)

	succeeded, partial, failed := Outcome([]Result{res})
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 1, partial)
	assert.Equal(t, 0, failed)
}
