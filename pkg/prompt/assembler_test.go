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

package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/pulse/pkg/finding"
)

func trigger(checkID, severity string) finding.TriggeredRule {
	return finding.TriggeredRule{
		CheckID:    checkID,
		MetricName: "m",
		Severity:   severity,
		Reason:     fmt.Sprintf("%s fired %s", checkID, severity),
	}
}

func bulkyFinding(checkID string, rows int) *finding.Finding {
	section := finding.Section{
		Name:    "data",
		Columns: []string{"name", "value", "detail"},
	}
	for i := 0; i < rows; i++ {
		section.Rows = append(section.Rows, []interface{}{
			fmt.Sprintf("row-%04d", i),
			decimal.NewFromInt(int64(i * 1000)),
			strings.Repeat("x", 40),
		})
	}
	return &finding.Finding{
		CheckID:  checkID,
		Status:   finding.StatusOK,
		Sections: []finding.Section{section},
		Metrics: map[string]interface{}{
			"total": decimal.NewFromInt(int64(rows)),
		},
	}
}

func assembleInputs(t *testing.T, triggered []finding.TriggeredRule, findings ...*finding.Finding) Inputs {
	t.Helper()
	store := finding.NewStore()
	for _, f := range findings {
		require.NoError(t, store.Put(f))
	}
	store.Freeze()
	return Inputs{
		Findings:  store,
		Triggered: triggered,
		Target:    finding.TargetInfo{Technology: "postgres", Host: "db1", Company: "acme"},
		Version:   finding.VersionMetadata{Version: "16.3", Major: 16, Minor: 3, Environment: "production", NodeCount: 1},
		Now:       time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestAssemble_HotChecksSerializedFully(t *testing.T) {
	in := assembleInputs(t,
		[]finding.TriggeredRule{trigger("hot_check", "critical"), trigger("warm_check", "medium")},
		bulkyFinding("hot_check", 3),
		bulkyFinding("warm_check", 3),
		bulkyFinding("quiet_check", 3),
	)

	a := New(Config{Budget: 1 << 20})
	text, audit, err := a.Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"hot_check"}, audit.HotCheckIDs)
	assert.Empty(t, audit.DemotedCheckIDs)
	assert.Empty(t, audit.OmittedCheckIDs)

	// The hot check appears verbatim with its rows; the others only as
	// compact summaries.
	assert.Contains(t, text, `hot_check: {"status":"ok"`)
	assert.Contains(t, text, "row-0000")
	assert.Contains(t, text, `"check_id":"warm_check"`)
	assert.Contains(t, text, `"check_id":"quiet_check"`)
}

func TestAssemble_OverflowDemotesThenOmits(t *testing.T) {
	in := assembleInputs(t,
		[]finding.TriggeredRule{
			trigger("big_hot", "critical"),
			trigger("small_hot", "high"),
			trigger("warm", "low"),
		},
		bulkyFinding("big_hot", 10),
		bulkyFinding("small_hot", 2),
		bulkyFinding("warm", 2),
		bulkyFinding("quiet_a", 2),
		bulkyFinding("quiet_b", 2),
	)

	// Budget forces both hot checks down to summaries and then drops
	// summaries. Untriggered checks must be dropped before the check with
	// a critical trigger.
	a := New(Config{Budget: 260})
	_, audit, err := a.Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"big_hot", "small_hot"}, audit.HotCheckIDs)
	// Smallest hot check demoted first.
	require.NotEmpty(t, audit.DemotedCheckIDs)
	assert.Equal(t, "small_hot", audit.DemotedCheckIDs[0])

	// Checks without critical triggers go before big_hot; whatever was
	// omitted, the critical check is last in line.
	for i, id := range audit.OmittedCheckIDs {
		if id == "big_hot" {
			assert.Equal(t, len(audit.OmittedCheckIDs)-1, i,
				"check with critical trigger dropped before others")
		}
	}
	if len(audit.OmittedCheckIDs) > 0 {
		assert.NotEqual(t, "big_hot", audit.OmittedCheckIDs[0])
	}
}

func TestAssemble_OmissionMarkerInPrompt(t *testing.T) {
	in := assembleInputs(t, nil,
		bulkyFinding("a", 5),
		bulkyFinding("b", 5),
		bulkyFinding("c", 5),
	)

	a := New(Config{Budget: 150})
	text, audit, err := a.Assemble(in)
	require.NoError(t, err)

	if len(audit.OmittedCheckIDs) > 0 {
		assert.Contains(t, text, "[truncated:")
	}
	assert.LessOrEqual(t, audit.InputTokenEstimate, 1<<20)
}

func TestAssemble_Deterministic(t *testing.T) {
	in := assembleInputs(t,
		[]finding.TriggeredRule{trigger("hot", "critical")},
		bulkyFinding("hot", 4),
		bulkyFinding("quiet", 4),
	)

	a := New(Config{Budget: 500})
	text1, audit1, err := a.Assemble(in)
	require.NoError(t, err)
	text2, audit2, err := a.Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, text1, text2)
	assert.Equal(t, audit1, audit2)
}

func TestAssemble_RowLimitAppliedToFullChecks(t *testing.T) {
	in := assembleInputs(t,
		[]finding.TriggeredRule{trigger("hot", "high")},
		bulkyFinding("hot", 30),
	)

	a := New(Config{Budget: 1 << 20, RowLimit: 5})
	text, _, err := a.Assemble(in)
	require.NoError(t, err)

	assert.Contains(t, text, "row-0004")
	assert.NotContains(t, text, "row-0005")
}

func TestAssemble_NoFindings(t *testing.T) {
	a := New(Config{})
	_, _, err := a.Assemble(Inputs{})
	require.Error(t, err)
}

func TestAssemble_SeveritySummaryLinesForHotTriggers(t *testing.T) {
	in := assembleInputs(t,
		[]finding.TriggeredRule{trigger("hot", "critical"), trigger("warm", "low")},
		bulkyFinding("hot", 1),
		bulkyFinding("warm", 1),
	)

	a := New(Config{Budget: 1 << 20})
	text, _, err := a.Assemble(in)
	require.NoError(t, err)

	assert.Contains(t, text, "critical: 1")
	assert.Contains(t, text, "- [critical] hot/m: hot fired critical")
	// Low severity triggers are counted but not itemized.
	assert.NotContains(t, text, "- [low]")
}
