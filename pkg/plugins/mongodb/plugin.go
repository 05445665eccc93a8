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
// Package mongodb is the MongoDB health-check plugin. Checks read the
// admin command documents the connector exposes and pull out the
// capacity and replication signals worth alerting on.
package mongodb

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teradata-labs/pulse/pkg/connector"
	cmongo "github.com/teradata-labs/pulse/pkg/connector/mongodb"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the MongoDB plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "mongodb",
		Technology: target.TechMongoDB,
		Checks: map[string]plugin.CheckFunc{
			"connections":     connections,
			"replica_set":     replicaSet,
			"long_operations": longOperations,
		},
		StaticTexts: map[string]string{
			"intro": "MongoDB health review: connections, replica set, long operations.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Capacity"},
					{Kind: plugin.ActionRunCheck, Name: "connections"},
					{Kind: plugin.ActionHeader, Name: "Replication"},
					{Kind: plugin.ActionRunCheck, Name: "replica_set"},
					{Kind: plugin.ActionHeader, Name: "Activity"},
					{Kind: plugin.ActionRunCheck, Name: "long_operations"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "connections"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func connections(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Operation: cmongo.OpServerStatus})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "connections", Status: finding.StatusOK, StartedAt: started}

	current, okCur := numAt(res.Document, "connections", "current")
	available, okAvail := numAt(res.Document, "connections", "available")
	if okCur && okAvail {
		f.Metrics = map[string]interface{}{
			"connections_current":   current,
			"connections_available": available,
		}
		total := current.Add(available)
		if total.IsPositive() {
			f.Metrics["connection_percent"] = current.
				Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		}
	}
	return f, nil
}

func replicaSet(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Operation: cmongo.OpReplStatus})
	if err != nil {
		// Standalone servers reject replSetGetStatus.
		var cerr *connector.Error
		if errors.As(err, &cerr) && cerr.Kind == connector.KindNotSupported {
			return &finding.Finding{
				CheckID:        "replica_set",
				Status:         finding.StatusNotApplicable,
				StartedAt:      started,
				ReportFragment: "Standalone server; no replica set.",
			}, nil
		}
		return nil, err
	}

	sec := finding.Section{
		Name:    "replica_members",
		Columns: []string{"name", "state", "health"},
	}
	if members, ok := res.Document["members"].([]interface{}); ok {
		for _, m := range members {
			member, ok := m.(map[string]interface{})
			if !ok {
				continue
			}
			sec.Rows = append(sec.Rows, []interface{}{
				member["name"], member["stateStr"], member["health"],
			})
		}
	}
	return &finding.Finding{
		CheckID:   "replica_set",
		Status:    finding.StatusOK,
		StartedAt: started,
		Sections:  []finding.Section{sec},
	}, nil
}

func longOperations(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Operation: cmongo.OpCurrentOp})
	if err != nil {
		return nil, err
	}

	sec := finding.Section{
		Name:    "long_operations",
		Columns: []string{"opid", "op", "ns", "secs_running"},
	}
	limit := cc.Settings.Int("row_limit", 10)
	if ops, ok := res.Document["inprog"].([]interface{}); ok {
		for _, o := range ops {
			op, ok := o.(map[string]interface{})
			if !ok {
				continue
			}
			secs, ok := asDecimal(op["secs_running"])
			if !ok || secs.LessThan(decimal.NewFromInt(1)) {
				continue
			}
			sec.Rows = append(sec.Rows, []interface{}{
				op["opid"], op["op"], op["ns"], secs,
			})
			if limit > 0 && len(sec.Rows) >= limit {
				break
			}
		}
	}
	return &finding.Finding{
		CheckID:   "long_operations",
		Status:    finding.StatusOK,
		StartedAt: started,
		Sections:  []finding.Section{sec},
	}, nil
}

// numAt digs a numeric leaf out of a nested command document.
func numAt(doc map[string]interface{}, path ...string) (decimal.Decimal, bool) {
	var cur interface{} = doc
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return decimal.Zero, false
		}
		cur = m[key]
	}
	return asDecimal(cur)
}

func asDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case float64:
		return decimal.NewFromFloat(n), true
	}
	return decimal.Zero, false
}
