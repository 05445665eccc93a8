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

package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/runner"
)

func reportRun(t *testing.T) *finding.Run {
	t.Helper()
	store := finding.NewStore()
	require.NoError(t, store.Put(&finding.Finding{
		CheckID:        "connection_usage",
		Status:         finding.StatusOK,
		ReportFragment: "Connections at 45% of max_connections.",
		DurationMS:     12,
	}))
	require.NoError(t, store.Put(&finding.Finding{
		CheckID:    "replication_lag",
		Status:     finding.StatusError,
		DurationMS: 3,
		Error:      &finding.CheckError{Kind: "permission", Message: "pg_stat_replication denied"},
	}))
	store.Freeze()

	return &finding.Run{
		RunID: "run-9",
		Target: finding.TargetInfo{
			Technology: "postgres", Host: "db1", Company: "acme", ClusterName: "main",
		},
		VersionMetadata: finding.VersionMetadata{Version: "16.3", Environment: "production"},
		StartedAt:       time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		Findings:        store,
		TriggeredRules: []finding.TriggeredRule{
			{CheckID: "connection_usage", MetricName: "connection_percent",
				Severity: "medium", Reason: "medium issue"},
			{CheckID: "connection_usage", MetricName: "connection_percent",
				Severity: "critical", Reason: "critical issue",
				Recommendations: []string{"Raise max_connections"}},
		},
		HealthScore: 75,
	}
}

func reportItems() []runner.Item {
	return []runner.Item{
		{Kind: plugin.ActionHeader, Text: "Capacity"},
		{Kind: plugin.ActionRunCheck, CheckID: "connection_usage"},
		{Kind: plugin.ActionRunCheck, CheckID: "replication_lag"},
	}
}

func TestWrite_FullReport(t *testing.T) {
	var b strings.Builder
	err := Write(&b, Input{
		Run:        reportRun(t),
		Items:      reportItems(),
		Assessment: "Overall the instance is healthy.\n",
	})
	require.NoError(t, err)
	text := b.String()

	assert.Contains(t, text, "Target:       postgres db1 (company acme)")
	assert.Contains(t, text, "Cluster:      main")
	assert.Contains(t, text, "Health score: 75/100")

	// Triggered rules come out severity-sorted, critical before medium.
	crit := strings.Index(text, "[CRITICAL] connection_usage / connection_percent")
	med := strings.Index(text, "[MEDIUM] connection_usage / connection_percent")
	require.GreaterOrEqual(t, crit, 0)
	require.GreaterOrEqual(t, med, 0)
	assert.Less(t, crit, med)
	assert.Contains(t, text, "- Raise max_connections")

	assert.Contains(t, text, "Overall the instance is healthy.")
	assert.Contains(t, text, "* connection_usage [ok] (12 ms)")
	assert.Contains(t, text, "Connections at 45% of max_connections.")

	// Failed check lands in the error summary.
	assert.Contains(t, text, "replication_lag: permission (pg_stat_replication denied)")
}

func TestWrite_LLMErrorInSummary(t *testing.T) {
	var b strings.Builder
	err := Write(&b, Input{
		Run:      reportRun(t),
		Items:    reportItems(),
		LLMError: "rate_limit: too many requests",
	})
	require.NoError(t, err)

	text := b.String()
	assert.NotContains(t, text, "Assessment")
	assert.Contains(t, text, "llm: rate_limit: too many requests")
}

func TestWrite_NoRun(t *testing.T) {
	var b strings.Builder
	require.Error(t, Write(&b, Input{}))
}

func TestWrite_CleanRunHasNoErrorSection(t *testing.T) {
	store := finding.NewStore()
	require.NoError(t, store.Put(&finding.Finding{CheckID: "c", Status: finding.StatusOK}))
	store.Freeze()
	run := &finding.Run{
		RunID:       "run-10",
		Target:      finding.TargetInfo{Technology: "mysql", Host: "db2", Company: "acme"},
		Findings:    store,
		HealthScore: 100,
	}

	var b strings.Builder
	require.NoError(t, Write(&b, Input{
		Run:   run,
		Items: []runner.Item{{Kind: plugin.ActionRunCheck, CheckID: "c"}},
	}))

	text := b.String()
	assert.NotContains(t, text, "Errors")
	assert.NotContains(t, text, "Triggered rules")
	assert.Contains(t, text, "Health score: 100/100")
}
