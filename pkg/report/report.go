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
// Package report renders the human-readable run report. The structured
// JSON document stays the machine-readable truth; this writer formats
// the same data for operators, in report-definition order, with an
// error summary at the end.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/runner"
	"github.com/teradata-labs/pulse/pkg/rules"
)

// Input is everything the writer needs for one run.
type Input struct {
	Run   *finding.Run
	Items []runner.Item

	// Assessment is the optional LLM-written narrative. Empty when AI
	// is disabled or the call failed; the failure then shows up in the
	// error summary instead.
	Assessment string

	// LLMError carries a failed LLM call into the error summary.
	LLMError string
}

// Write renders the report to w.
func Write(w io.Writer, in Input) error {
	if in.Run == nil {
		return fmt.Errorf("no run to report")
	}
	b := &strings.Builder{}

	writeHeader(b, in.Run)
	writeTriggered(b, in.Run.TriggeredRules)
	if in.Assessment != "" {
		section(b, "Assessment")
		b.WriteString(strings.TrimSpace(in.Assessment))
		b.WriteString("\n\n")
	}
	writeBody(b, in)
	writeErrors(b, in)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(b *strings.Builder, run *finding.Run) {
	fmt.Fprintf(b, "Database health report\n")
	fmt.Fprintf(b, "======================\n\n")
	fmt.Fprintf(b, "Target:       %s %s (company %s)\n",
		run.Target.Technology, run.Target.Host, run.Target.Company)
	if run.Target.ClusterName != "" {
		fmt.Fprintf(b, "Cluster:      %s\n", run.Target.ClusterName)
	}
	fmt.Fprintf(b, "Server:       %s (%s)\n",
		run.VersionMetadata.Version, run.VersionMetadata.Environment)
	fmt.Fprintf(b, "Run:          %s\n", run.RunID)
	fmt.Fprintf(b, "Started:      %s\n", run.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "Health score: %d/100\n\n", run.HealthScore)
}

func writeTriggered(b *strings.Builder, triggered []finding.TriggeredRule) {
	if len(triggered) == 0 {
		return
	}
	section(b, "Triggered rules")
	order := []string{rules.SeverityCritical, rules.SeverityHigh,
		rules.SeverityMedium, rules.SeverityLow, rules.SeverityInfo}
	for _, sev := range order {
		for _, tr := range triggered {
			if tr.Severity != sev {
				continue
			}
			fmt.Fprintf(b, "[%s] %s / %s\n", strings.ToUpper(tr.Severity), tr.CheckID, tr.MetricName)
			fmt.Fprintf(b, "    %s\n", tr.Reason)
			for _, rec := range tr.Recommendations {
				fmt.Fprintf(b, "    - %s\n", rec)
			}
		}
	}
	b.WriteString("\n")
}

func writeBody(b *strings.Builder, in Input) {
	section(b, "Checks")
	for _, item := range in.Items {
		switch item.Kind {
		case plugin.ActionHeader:
			fmt.Fprintf(b, "\n%s\n%s\n", item.Text, strings.Repeat("-", len(item.Text)))
		case plugin.ActionStaticText:
			if item.Text != "" {
				fmt.Fprintf(b, "%s\n", item.Text)
			}
		case plugin.ActionRunCheck:
			writeFinding(b, in.Run.Findings.Get(item.CheckID))
		}
	}
	b.WriteString("\n")
}

func writeFinding(b *strings.Builder, f *finding.Finding) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "\n* %s [%s] (%d ms)\n", f.CheckID, f.Status, f.DurationMS)
	if f.ReportFragment != "" {
		for _, line := range strings.Split(strings.TrimSpace(f.ReportFragment), "\n") {
			fmt.Fprintf(b, "  %s\n", line)
		}
	}
	for _, sec := range f.Sections {
		if sec.Summary != "" {
			fmt.Fprintf(b, "  %s: %s\n", sec.Name, sec.Summary)
		} else if len(sec.Rows) > 0 {
			fmt.Fprintf(b, "  %s: %d rows\n", sec.Name, len(sec.Rows))
		}
	}
}

// writeErrors summarizes everything that went wrong during the run.
func writeErrors(b *strings.Builder, in Input) {
	var lines []string
	for _, f := range in.Run.Findings.All() {
		if f.Error == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", f.CheckID, f.Error.Kind, f.Error.Message))
	}
	if in.LLMError != "" {
		lines = append(lines, fmt.Sprintf("llm: %s", in.LLMError))
	}
	if len(lines) == 0 {
		return
	}
	section(b, "Errors")
	for _, line := range lines {
		fmt.Fprintf(b, "- %s\n", line)
	}
	b.WriteString("\n")
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "%s\n%s\n", title, strings.Repeat("-", len(title)))
}
