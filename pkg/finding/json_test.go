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
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(t *testing.T) *Run {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.Put(&Finding{
		CheckID: "connection_usage",
		Status:  StatusOK,
		Metrics: map[string]interface{}{
			"connection_percent": decimal.RequireFromString("81.25"),
		},
		StartedAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DurationMS: 42,
	}))
	require.NoError(t, store.Put(&Finding{
		CheckID: "cache_hit_ratio",
		Status:  StatusWarning,
		Sections: []Section{{
			Name:    "cache_hit_ratio_percent",
			Columns: []string{"datname", "hit_ratio_percent"},
			Rows: [][]interface{}{
				{"app", decimal.RequireFromString("99.9")},
				{"warehouse", decimal.RequireFromString("84.5")},
			},
		}},
		StartedAt:  time.Date(2026, 8, 20, 10, 0, 1, 0, time.UTC),
		DurationMS: 17,
	}))
	store.Freeze()

	return &Run{
		RunID: "run-1",
		Target: TargetInfo{
			Technology: "postgres",
			Host:       "db1.example.com",
			Port:       5432,
			Company:    "acme",
		},
		VersionMetadata: VersionMetadata{
			Version: "16.3", Major: 16, Minor: 3, Environment: "production", NodeCount: 1,
		},
		StartedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2026, 8, 20, 10, 1, 0, 0, time.UTC),
		Findings:  store,
		TriggeredRules: []TriggeredRule{{
			CheckID:         "cache_hit_ratio",
			MetricName:      "cache_hit_ratio_percent",
			Severity:        "high",
			Score:           10,
			Reason:          "Cache hit ratio for warehouse is 84.5%",
			Recommendations: []string{"Increase shared_buffers"},
			TriggeringRow: map[string]interface{}{
				"datname":           "warehouse",
				"hit_ratio_percent": decimal.RequireFromString("84.5"),
			},
		}},
		HealthScore: 90,
	}
}

func TestEncodeDecodeRun_RoundTrip(t *testing.T) {
	run := sampleRun(t)

	data, err := EncodeRun(run)
	require.NoError(t, err)

	back, err := DecodeRun(data)
	require.NoError(t, err)

	assert.Equal(t, run.RunID, back.RunID)
	assert.Equal(t, run.Target, back.Target)
	assert.Equal(t, run.HealthScore, back.HealthScore)
	assert.True(t, run.StartedAt.Equal(back.StartedAt))

	// Findings come back in document order with decimals restored.
	require.Equal(t, run.Findings.Len(), back.Findings.Len())
	var ids []string
	for _, f := range back.Findings.All() {
		ids = append(ids, f.CheckID)
	}
	assert.Equal(t, []string{"connection_usage", "cache_hit_ratio"}, ids)

	pct, ok := back.Findings.Get("connection_usage").Metrics["connection_percent"].(decimal.Decimal)
	require.True(t, ok, "metric should decode as decimal")
	assert.True(t, pct.Equal(decimal.RequireFromString("81.25")))

	cell, ok := back.Findings.Get("cache_hit_ratio").Sections[0].Rows[1][1].(decimal.Decimal)
	require.True(t, ok, "row cell should decode as decimal")
	assert.True(t, cell.Equal(decimal.RequireFromString("84.5")))

	require.Len(t, back.TriggeredRules, 1)
	row, ok := back.TriggeredRules[0].TriggeringRow["hit_ratio_percent"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, row.Equal(decimal.RequireFromString("84.5")))
}

func TestEncodeRun_DecimalsAsPlainNumbers(t *testing.T) {
	run := sampleRun(t)
	data, err := EncodeRun(run)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"connection_percent":81.25`)
	assert.NotContains(t, text, `"81.25"`)
}

func TestEncodeRun_ValidatesFirst(t *testing.T) {
	run := sampleRun(t)
	run.RunID = ""
	_, err := EncodeRun(run)
	require.Error(t, err)

	run = sampleRun(t)
	run.Target.Company = ""
	_, err = EncodeRun(run)
	require.Error(t, err)

	run = sampleRun(t)
	run.Findings = nil
	_, err = EncodeRun(run)
	require.Error(t, err)
}

func TestDecodeRun_RejectsInvalidStatus(t *testing.T) {
	run := sampleRun(t)
	data, err := EncodeRun(run)
	require.NoError(t, err)

	corrupted := strings.Replace(string(data), `"status":"warning"`, `"status":"bogus"`, 1)
	_, err = DecodeRun([]byte(corrupted))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestRun_MarshalEmitsEmptyTriggeredRules(t *testing.T) {
	run := sampleRun(t)
	run.TriggeredRules = nil

	data, err := EncodeRun(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"triggered_rules":[]`)
}
