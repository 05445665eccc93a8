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
// Package prompt assembles the token-budgeted LLM prompt from a run's
// findings and triggered rules. Checks with critical or high severity
// triggers ("hot" checks) are serialized fully; everything else is
// summarized. When the rendered prompt exceeds the budget, hot checks
// are demoted smallest-first, then summaries are dropped lowest severity
// first, and the omission is always recorded in the audit.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/rules"
)

// DefaultBudget is the default input token budget.
const DefaultBudget = 16000

// Config wires an Assembler.
type Config struct {
	Tokenizer Tokenizer
	Budget    int
	RowLimit  int
	Template  string
	Logger    *zap.Logger
}

// Inputs is the fixed record the assembler consumes.
type Inputs struct {
	Findings  *finding.Store
	Triggered []finding.TriggeredRule
	Target    finding.TargetInfo
	Version   finding.VersionMetadata
	Now       time.Time
}

// Audit records what the budget forced: the estimate, which checks were
// serialized fully, which were demoted, and which were dropped.
type Audit struct {
	InputTokenEstimate int      `json:"input_token_estimate"`
	HotCheckIDs        []string `json:"hot_check_ids"`
	DemotedCheckIDs    []string `json:"demoted_check_ids"`
	OmittedCheckIDs    []string `json:"omitted_check_ids"`
}

// Assembler builds prompts. Stateless across calls; the same findings
// can be rendered with different templates without rerunning checks.
type Assembler struct {
	cfg    Config
	logger *zap.Logger
}

// New builds an Assembler with defaults applied.
func New(cfg Config) *Assembler {
	if cfg.Tokenizer == nil {
		cfg.Tokenizer = Chars4{}
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = 10
	}
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Assembler{cfg: cfg, logger: cfg.Logger}
}

// Assemble renders the prompt and its audit record.
func (a *Assembler) Assemble(in Inputs) (string, *Audit, error) {
	if in.Findings == nil {
		return "", nil, fmt.Errorf("no findings store")
	}

	triggers := triggersByCheck(in.Triggered)
	audit := &Audit{
		HotCheckIDs:     []string{},
		DemotedCheckIDs: []string{},
		OmittedCheckIDs: []string{},
	}

	// full holds hot check ids still serialized fully; summary holds
	// everything else that has not been omitted. Both in store order.
	var full, summary []string
	for _, f := range in.Findings.All() {
		if isHot(triggers[f.CheckID]) {
			full = append(full, f.CheckID)
			audit.HotCheckIDs = append(audit.HotCheckIDs, f.CheckID)
		} else {
			summary = append(summary, f.CheckID)
		}
	}

	render := func() string {
		vars := a.buildVars(in, triggers, full, summary, len(audit.OmittedCheckIDs))
		return Render(a.cfg.Template, vars)
	}

	text := render()
	estimate := a.cfg.Tokenizer.Estimate(text)

	// Demote the smallest hot check until the prompt fits.
	for estimate > a.cfg.Budget && len(full) > 0 {
		idx := a.smallestFull(in.Findings, full)
		demoted := full[idx]
		full = append(full[:idx], full[idx+1:]...)
		summary = append(summary, demoted)
		audit.DemotedCheckIDs = append(audit.DemotedCheckIDs, demoted)
		a.logger.Debug("demoting hot check to summary",
			zap.String("check", demoted), zap.Int("estimate", estimate))
		text = render()
		estimate = a.cfg.Tokenizer.Estimate(text)
	}

	// Still over: drop summaries, lowest severity first. A check whose
	// triggers include critical is dropped only after every other
	// summary is gone.
	for estimate > a.cfg.Budget && len(summary) > 0 {
		idx := lowestSeverity(summary, triggers)
		omitted := summary[idx]
		summary = append(summary[:idx], summary[idx+1:]...)
		audit.OmittedCheckIDs = append(audit.OmittedCheckIDs, omitted)
		a.logger.Debug("omitting check summary",
			zap.String("check", omitted), zap.Int("estimate", estimate))
		text = render()
		estimate = a.cfg.Tokenizer.Estimate(text)
	}

	if estimate > a.cfg.Budget {
		a.logger.Warn("prompt still over budget after truncation",
			zap.Int("estimate", estimate), zap.Int("budget", a.cfg.Budget))
	}

	audit.InputTokenEstimate = estimate
	return text, audit, nil
}

func (a *Assembler) buildVars(in Inputs, triggers map[string][]finding.TriggeredRule,
	full, summary []string, omitted int) map[string]interface{} {

	fullSet := toSet(full)
	summarySet := toSet(summary)

	var fullParts, summaryParts []string
	for _, f := range in.Findings.All() {
		switch {
		case fullSet[f.CheckID]:
			fullParts = append(fullParts, a.serializeFull(f))
		case summarySet[f.CheckID]:
			summaryParts = append(summaryParts, a.serializeSummary(f, triggers[f.CheckID]))
		}
	}
	if omitted > 0 {
		summaryParts = append(summaryParts,
			fmt.Sprintf("[truncated: %d checks omitted]", omitted))
	}

	return map[string]interface{}{
		"version_metadata": fmt.Sprintf("%s %s (v%d.%d, %d nodes)",
			in.Target.Technology, in.Version.Version, in.Version.Major,
			in.Version.Minor, in.Version.NodeCount),
		"target": fmt.Sprintf("%s %s (company %s)",
			in.Target.Technology, in.Target.Host, in.Target.Company),
		"environment":           in.Version.Environment,
		"findings_full":         strings.Join(fullParts, "\n"),
		"findings_summary":      strings.Join(summaryParts, "\n"),
		"triggered_by_severity": severitySummary(in.Triggered),
		"generation_time":       in.Now.UTC().Format(time.RFC3339),
	}
}

// serializeFull renders a finding verbatim with rows capped at the
// configured row limit.
func (a *Assembler) serializeFull(f *finding.Finding) string {
	cp := *f
	cp.Sections = make([]finding.Section, len(f.Sections))
	for i, sec := range f.Sections {
		if len(sec.Rows) > a.cfg.RowLimit {
			sec.Rows = sec.Rows[:a.cfg.RowLimit]
			if sec.Summary == "" {
				sec.Summary = fmt.Sprintf("showing first %d rows", a.cfg.RowLimit)
			}
		}
		cp.Sections[i] = sec
	}
	data, err := finding.EncodeFinding(&cp)
	if err != nil {
		return fmt.Sprintf(`{"check": %q, "error": "unserializable"}`, f.CheckID)
	}
	return fmt.Sprintf("%s: %s", f.CheckID, data)
}

// serializeSummary renders the compact form: status, row counts, top 3
// metrics by magnitude, triggered severities.
func (a *Assembler) serializeSummary(f *finding.Finding, trs []finding.TriggeredRule) string {
	rowCounts := map[string]int{}
	for _, sec := range f.Sections {
		rowCounts[sec.Name] = len(sec.Rows)
	}

	summary := map[string]interface{}{
		"check_id": f.CheckID,
		"status":   string(f.Status),
	}
	if len(rowCounts) > 0 {
		summary["row_counts"] = rowCounts
	}
	if top := topMetrics(f.Metrics, 3); len(top) > 0 {
		summary["top_metrics"] = top
	}
	if len(trs) > 0 {
		sevs := make([]string, 0, len(trs))
		for _, tr := range trs {
			sevs = append(sevs, tr.Severity)
		}
		summary["triggered_severities"] = sevs
	}
	if f.Error != nil {
		summary["error"] = f.Error.Kind
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Sprintf(`{"check_id": %q}`, f.CheckID)
	}
	return string(data)
}

// smallestFull returns the index of the hot check with the smallest full
// serialization, ties broken by position.
func (a *Assembler) smallestFull(store *finding.Store, full []string) int {
	best, bestSize := 0, -1
	for i, id := range full {
		size := len(a.serializeFull(store.Get(id)))
		if bestSize == -1 || size < bestSize {
			best, bestSize = i, size
		}
	}
	return best
}

// lowestSeverity returns the index of the summary whose strongest
// trigger is weakest; untriggered checks rank below everything.
func lowestSeverity(summary []string, triggers map[string][]finding.TriggeredRule) int {
	best, bestRank := 0, -1
	for i, id := range summary {
		rank := 0
		for _, tr := range triggers[id] {
			if r := rules.SeverityRank[tr.Severity]; r > rank {
				rank = r
			}
		}
		if bestRank == -1 || rank < bestRank {
			best, bestRank = i, rank
		}
	}
	return best
}

func isHot(trs []finding.TriggeredRule) bool {
	for _, tr := range trs {
		if tr.Severity == rules.SeverityCritical || tr.Severity == rules.SeverityHigh {
			return true
		}
	}
	return false
}

func triggersByCheck(trs []finding.TriggeredRule) map[string][]finding.TriggeredRule {
	out := map[string][]finding.TriggeredRule{}
	for _, tr := range trs {
		out[tr.CheckID] = append(out[tr.CheckID], tr)
	}
	return out
}

func severitySummary(trs []finding.TriggeredRule) string {
	if len(trs) == 0 {
		return "none"
	}
	counts := map[string]int{}
	for _, tr := range trs {
		counts[tr.Severity]++
	}
	order := []string{rules.SeverityCritical, rules.SeverityHigh,
		rules.SeverityMedium, rules.SeverityLow, rules.SeverityInfo}
	var parts []string
	for _, sev := range order {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", sev, counts[sev]))
		}
	}
	lines := []string{strings.Join(parts, ", ")}
	for _, tr := range trs {
		if tr.Severity == rules.SeverityCritical || tr.Severity == rules.SeverityHigh {
			lines = append(lines, fmt.Sprintf("- [%s] %s/%s: %s",
				tr.Severity, tr.CheckID, tr.MetricName, tr.Reason))
		}
	}
	return strings.Join(lines, "\n")
}

// topMetrics picks the n numerically largest metrics by magnitude,
// deterministically.
func topMetrics(metrics map[string]interface{}, n int) map[string]interface{} {
	type entry struct {
		name string
		abs  decimal.Decimal
		val  interface{}
	}
	var entries []entry
	for name, v := range metrics {
		var d decimal.Decimal
		switch val := v.(type) {
		case decimal.Decimal:
			d = val
		case int:
			d = decimal.NewFromInt(int64(val))
		case int64:
			d = decimal.NewFromInt(val)
		case float64:
			d = decimal.NewFromFloat(val)
		default:
			continue
		}
		entries = append(entries, entry{name: name, abs: d.Abs(), val: wireNumber(d)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].abs.Equal(entries[j].abs) {
			return entries[i].abs.GreaterThan(entries[j].abs)
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		out[e.name] = e.val
	}
	return out
}

func wireNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
