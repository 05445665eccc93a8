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
// Package valkey is the Valkey/Redis health-check plugin. Everything
// comes from INFO sections.
package valkey

import (
	"context"
	_ "embed"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the Valkey plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "valkey",
		Technology: target.TechValkey,
		Checks: map[string]plugin.CheckFunc{
			"memory":      memory,
			"clients":     clients,
			"persistence": persistence,
			"replication": replication,
		},
		StaticTexts: map[string]string{
			"intro": "Valkey health review: memory, clients, persistence, replication.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Memory"},
					{Kind: plugin.ActionRunCheck, Name: "memory"},
					{Kind: plugin.ActionHeader, Name: "Clients"},
					{Kind: plugin.ActionRunCheck, Name: "clients"},
					{Kind: plugin.ActionHeader, Name: "Durability"},
					{Kind: plugin.ActionRunCheck, Name: "persistence"},
					{Kind: plugin.ActionHeader, Name: "Replication"},
					{Kind: plugin.ActionRunCheck, Name: "replication"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "memory"},
					{Kind: plugin.ActionRunCheck, Name: "clients"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func memory(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Command: "INFO memory"})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "memory", Status: finding.StatusOK, StartedAt: started}
	f.Metrics = checkutil.Metrics(res.Document,
		"used_memory", "maxmemory", "mem_fragmentation_ratio", "used_memory_peak")

	used, okUsed := res.Document["used_memory"].(decimal.Decimal)
	max, okMax := res.Document["maxmemory"].(decimal.Decimal)
	if okUsed && okMax && max.IsPositive() {
		if f.Metrics == nil {
			f.Metrics = map[string]interface{}{}
		}
		f.Metrics["memory_percent"] = used.Div(max).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return f, nil
}

func clients(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Command(ctx, cc, "clients", "INFO clients",
		"connected_clients", "blocked_clients", "maxclients")
}

func persistence(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Command: "INFO persistence"})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "persistence", Status: finding.StatusOK, StartedAt: started}
	f.Metrics = checkutil.Metrics(res.Document,
		"rdb_changes_since_last_save", "aof_enabled")
	if status, ok := res.Document["rdb_last_bgsave_status"].(string); ok {
		if f.Metrics == nil {
			f.Metrics = map[string]interface{}{}
		}
		f.Metrics["rdb_last_bgsave_status"] = status
	}
	return f, nil
}

func replication(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Command: "INFO replication"})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "replication", Status: finding.StatusOK, StartedAt: started}
	f.Metrics = checkutil.Metrics(res.Document, "connected_slaves", "master_repl_offset")
	if f.Metrics == nil {
		f.Metrics = map[string]interface{}{}
	}
	if role, ok := res.Document["role"].(string); ok {
		f.Metrics["role"] = role
	}
	if link, ok := res.Document["master_link_status"].(string); ok {
		f.Metrics["master_link_status"] = link
	}
	return f, nil
}
