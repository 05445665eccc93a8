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
// Package clickhouse is the ClickHouse health-check plugin.
package clickhouse

import (
	"context"
	_ "embed"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the ClickHouse plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "clickhouse",
		Technology: target.TechClickHouse,
		Checks: map[string]plugin.CheckFunc{
			"parts_pressure": partsPressure,
			"replica_delay":  replicaDelay,
			"disk_usage":     diskUsage,
			"slow_queries":   slowQueries,
		},
		StaticTexts: map[string]string{
			"intro": "ClickHouse health review: merge parts, replication, disks.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Storage"},
					{Kind: plugin.ActionRunCheck, Name: "parts_pressure"},
					{Kind: plugin.ActionRunCheck, Name: "disk_usage"},
					{Kind: plugin.ActionHeader, Name: "Replication"},
					{Kind: plugin.ActionRunCheck, Name: "replica_delay"},
					{Kind: plugin.ActionHeader, Name: "Queries"},
					{Kind: plugin.ActionRunCheck, Name: "slow_queries"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "parts_pressure"},
					{Kind: plugin.ActionRunCheck, Name: "disk_usage"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func partsPressure(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "parts_pressure", "parts_per_partition", `
		SELECT database, table, partition_id, count() AS active_parts
		  FROM system.parts
		 WHERE active
		 GROUP BY database, table, partition_id
		 ORDER BY active_parts DESC`)
}

func replicaDelay(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	f, err := checkutil.Table(ctx, cc, "replica_delay", "replica_delay", `
		SELECT database, table, absolute_delay AS delay_secs,
		       queue_size, is_readonly
		  FROM system.replicas
		 ORDER BY absolute_delay DESC`)
	if err != nil {
		return nil, err
	}
	if sec := f.Section("replica_delay"); sec != nil && len(sec.Rows) == 0 {
		f.Status = finding.StatusNotApplicable
		f.ReportFragment = "No replicated tables."
	}
	return f, nil
}

func diskUsage(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "disk_usage", "disks", `
		SELECT name, path,
		       round((1 - free_space / total_space) * 100, 2) AS used_percent,
		       free_space, total_space
		  FROM system.disks`)
}

func slowQueries(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "slow_queries", "slow_queries", `
		SELECT left(query, 120) AS query,
		       query_duration_ms, memory_usage, read_rows
		  FROM system.query_log
		 WHERE type = 'QueryFinish'
		   AND event_time > now() - INTERVAL 1 HOUR
		 ORDER BY query_duration_ms DESC`)
}
