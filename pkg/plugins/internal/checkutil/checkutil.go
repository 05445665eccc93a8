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
// Package checkutil holds the shared shapes of plugin checks. Most
// checks are one query turned into one section, or one operation turned
// into a metrics map; the helpers here keep the per-plugin code down to
// the query text and the metric selection.
package checkutil

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
)

// Table runs one SQL statement and returns a Finding with a single
// tabular section named sectionName. Rows are capped at the target's
// row_limit setting.
func Table(ctx context.Context, cc *plugin.CheckContext, checkID, sectionName, sql string) (*finding.Finding, error) {
	return TableQuery(ctx, cc, checkID, sectionName, connector.Query{SQL: sql})
}

// TableQuery is Table for non-SQL backends: any query whose result is
// tabular becomes one section.
func TableQuery(ctx context.Context, cc *plugin.CheckContext, checkID, sectionName string, q connector.Query) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	f := base(checkID, started)
	f.Sections = append(f.Sections, Section(sectionName, res, cc.Settings.Int("row_limit", 10)))
	return f, nil
}

// Doc runs one structured operation and returns a Finding whose metrics
// are the numeric leaves of the result document, filtered to keys when
// keys is non-empty.
func Doc(ctx context.Context, cc *plugin.CheckContext, checkID, operation string, params map[string]interface{}, keys ...string) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Operation: operation, Params: params})
	if err != nil {
		return nil, err
	}
	f := base(checkID, started)
	f.Metrics = Metrics(res.Document, keys...)
	return f, nil
}

// Command runs one raw command (key/value backends) and returns a
// Finding with the numeric leaves as metrics.
func Command(ctx context.Context, cc *plugin.CheckContext, checkID, cmd string, keys ...string) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Command: cmd})
	if err != nil {
		return nil, err
	}
	f := base(checkID, started)
	f.Metrics = Metrics(res.Document, keys...)
	return f, nil
}

// Section converts a query result into a named section, capping rows at
// limit. A cap is recorded in the section summary so the report shows
// the truncation.
func Section(name string, res *connector.Result, limit int) finding.Section {
	s := finding.Section{Name: name, Columns: res.Columns, Rows: res.Rows}
	if limit > 0 && len(res.Rows) > limit {
		s.Rows = res.Rows[:limit]
		s.Summary = trimSummary(len(res.Rows), limit)
	}
	return s
}

// Metrics extracts the numeric leaves of a result document. With keys,
// only the named leaves are kept; otherwise every numeric leaf is.
func Metrics(doc map[string]interface{}, keys ...string) map[string]interface{} {
	if len(doc) == 0 {
		return nil
	}
	wanted := map[string]bool{}
	for _, k := range keys {
		wanted[k] = true
	}
	out := map[string]interface{}{}
	for k, v := range doc {
		if len(wanted) > 0 && !wanted[k] {
			continue
		}
		switch v.(type) {
		case decimal.Decimal, int, int64, float64:
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ScalarMetric returns the first cell of the first row as a named
// metric, for single-value aggregate queries.
func ScalarMetric(res *connector.Result, name string) map[string]interface{} {
	if res == nil || len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return nil
	}
	return map[string]interface{}{name: res.Rows[0][0]}
}

func base(checkID string, started time.Time) *finding.Finding {
	return &finding.Finding{
		CheckID:    checkID,
		Status:     finding.StatusOK,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
	}
}

func trimSummary(total, shown int) string {
	return fmt.Sprintf("showing first %d of %d rows", shown, total)
}
