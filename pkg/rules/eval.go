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
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Evaluator applies a rule set to a findings store. Evaluation is pure:
// the store, the settings, and the set are read-only, and two runs over
// the same inputs produce identical output in identical order.
type Evaluator struct {
	set    *Set
	logger *zap.Logger
}

// NewEvaluator builds an evaluator for a compiled rule set.
func NewEvaluator(set *Set, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{set: set, logger: logger}
}

// Evaluate walks findings in insertion order, metrics in sorted order,
// rows in row order. For each (metric, row) the first matching rule wins
// and later rules are not evaluated. An expression that errors at
// runtime counts as no match and is logged at debug level.
func (e *Evaluator) Evaluate(store *finding.Store, settings *target.Settings) []finding.TriggeredRule {
	var out []finding.TriggeredRule

	settingsEnv := map[string]interface{}{}
	if settings != nil {
		for k, v := range settings.Map() {
			settingsEnv[k] = exprValue(e.logger, v)
		}
	}
	allFindings := e.findingsEnv(store)

	for _, f := range store.All() {
		for _, metric := range e.set.metrics {
			rulesForMetric := e.set.byMetric[metric]

			if sec := f.Section(metric); sec != nil && len(sec.Rows) > 0 {
				for _, row := range sec.Rows {
					data := rowMap(sec.Columns, row)
					if tr := e.matchOne(rulesForMetric, ScopeRow, f, metric, data, settingsEnv, allFindings); tr != nil {
						tr.TriggeringRow = data
						out = append(out, *tr)
					}
				}
				continue
			}

			if v, ok := f.Metrics[metric]; ok {
				data := map[string]interface{}{"value": v, metric: v}
				if tr := e.matchOne(rulesForMetric, ScopeAggregate, f, metric, data, settingsEnv, allFindings); tr != nil {
					out = append(out, *tr)
				}
			}
		}
	}
	return out
}

// matchOne evaluates the ordered rules for one (metric, row) and returns
// the first match, or nil.
func (e *Evaluator) matchOne(list []*Rule, scope string, f *finding.Finding, metric string,
	data, settingsEnv map[string]interface{}, allFindings map[string]interface{}) *finding.TriggeredRule {

	env := map[string]interface{}{
		"data":         e.exprData(data),
		"settings":     settingsEnv,
		"all_findings": allFindings,
	}

	for _, r := range list {
		if r.Scope != "" && r.Scope != scope {
			continue
		}
		result, err := expr.Run(r.program, env)
		if err != nil {
			e.logger.Debug("rule expression failed, treating as no match",
				zap.String("check", f.CheckID),
				zap.String("metric", metric),
				zap.String("expression", r.Expression),
				zap.Error(err))
			continue
		}
		matched, ok := result.(bool)
		if !ok || !matched {
			continue
		}
		return &finding.TriggeredRule{
			CheckID:         f.CheckID,
			MetricName:      metric,
			Severity:        r.Severity,
			Score:           r.Score,
			Reason:          renderReason(r.Reasoning, data),
			Recommendations: r.Recommendations,
		}
	}
	return nil
}

// exprData converts engine values into the shapes expr evaluates:
// decimals become float64, size strings become byte counts. The original
// data map is untouched so triggering rows keep lossless values.
func (e *Evaluator) exprData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = exprValue(e.logger, v)
	}
	return out
}

func exprValue(logger *zap.Logger, v interface{}) interface{} {
	switch val := v.(type) {
	case decimal.Decimal:
		f, _ := val.Float64()
		return f
	case string:
		if bytes, ok, malformed := ParseSize(val); ok {
			if malformed {
				logger.Debug("malformed size string normalized to zero",
					zap.String("value", val))
			}
			f, _ := bytes.Float64()
			return f
		}
		return val
	default:
		return v
	}
}

func (e *Evaluator) findingsEnv(store *finding.Store) map[string]interface{} {
	env := make(map[string]interface{}, store.Len())
	for _, f := range store.All() {
		env[f.CheckID] = map[string]interface{}{
			"status":  string(f.Status),
			"metrics": e.exprData(f.Metrics),
		}
	}
	return env
}

func rowMap(columns []string, row []interface{}) map[string]interface{} {
	data := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		if i < len(row) {
			data[col] = row[i]
		}
	}
	return data
}

var placeholderRe = regexp.MustCompile(`\{\{\s*\.?(\w+)\s*\}\}`)

// renderReason substitutes {{.field}} placeholders with field values
// from the triggering data. Unknown fields render empty; no expressions.
func renderReason(template string, data map[string]interface{}) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		field := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := data[field]
		if !ok || v == nil {
			return ""
		}
		if d, isDec := v.(decimal.Decimal); isDec {
			return d.String()
		}
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	})
}
