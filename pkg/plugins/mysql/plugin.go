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
// Package mysql is the MySQL health-check plugin.
package mysql

import (
	"context"
	_ "embed"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the MySQL plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "mysql",
		Technology: target.TechMySQL,
		Checks: map[string]plugin.CheckFunc{
			"connection_usage":  connectionUsage,
			"buffer_pool":       bufferPool,
			"slow_statements":   slowStatements,
			"replica_status":    replicaStatus,
			"large_tables":      largeTables,
			"long_transactions": longTransactions,
		},
		StaticTexts: map[string]string{
			"intro": "MySQL health review: connections, InnoDB buffer pool, replication.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Capacity"},
					{Kind: plugin.ActionRunCheck, Name: "connection_usage"},
					{Kind: plugin.ActionRunCheck, Name: "buffer_pool"},
					{Kind: plugin.ActionHeader, Name: "Activity"},
					{Kind: plugin.ActionRunCheck, Name: "slow_statements"},
					{Kind: plugin.ActionRunCheck, Name: "long_transactions"},
					{Kind: plugin.ActionHeader, Name: "Storage"},
					{Kind: plugin.ActionRunCheck, Name: "large_tables"},
					{Kind: plugin.ActionHeader, Name: "Replication"},
					{Kind: plugin.ActionRunCheck, Name: "replica_status"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "connection_usage"},
					{Kind: plugin.ActionRunCheck, Name: "buffer_pool"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func connectionUsage(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	res, err := cc.Connector.Query(ctx, connector.Query{SQL: `
		SELECT (SELECT VARIABLE_VALUE FROM performance_schema.global_status
		         WHERE VARIABLE_NAME = 'Threads_connected') /
		       (SELECT VARIABLE_VALUE FROM performance_schema.global_variables
		         WHERE VARIABLE_NAME = 'max_connections') * 100`})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "connection_usage", Status: finding.StatusOK}
	f.Metrics = checkutil.ScalarMetric(res, "connection_percent")
	return f, nil
}

func bufferPool(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	res, err := cc.Connector.Query(ctx, connector.Query{SQL: `
		SELECT 100 - (SELECT VARIABLE_VALUE FROM performance_schema.global_status
		               WHERE VARIABLE_NAME = 'Innodb_buffer_pool_reads') /
		             GREATEST((SELECT VARIABLE_VALUE FROM performance_schema.global_status
		               WHERE VARIABLE_NAME = 'Innodb_buffer_pool_read_requests'), 1) * 100`})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "buffer_pool", Status: finding.StatusOK}
	f.Metrics = checkutil.ScalarMetric(res, "buffer_pool_hit_percent")
	return f, nil
}

func slowStatements(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "slow_statements", "slow_statements", `
		SELECT LEFT(DIGEST_TEXT, 120) AS query,
		       COUNT_STAR AS calls,
		       ROUND(AVG_TIMER_WAIT / 1000000000, 2) AS mean_ms
		  FROM performance_schema.events_statements_summary_by_digest
		 WHERE DIGEST_TEXT IS NOT NULL
		 ORDER BY AVG_TIMER_WAIT DESC`)
}

func replicaStatus(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	f, err := checkutil.Table(ctx, cc, "replica_status", "replica_lag", `
		SELECT CHANNEL_NAME AS channel, SERVICE_STATE AS state,
		       COUNT_TRANSACTIONS_IN_QUEUE AS queued_transactions
		  FROM performance_schema.replication_applier_status`)
	if err != nil {
		return nil, err
	}
	if sec := f.Section("replica_lag"); sec != nil && len(sec.Rows) == 0 {
		f.Status = finding.StatusNotApplicable
		f.ReportFragment = "No replication channels configured."
	}
	return f, nil
}

func largeTables(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "large_tables", "large_tables", `
		SELECT table_schema, table_name,
		       data_length + index_length AS total_bytes,
		       table_rows
		  FROM information_schema.tables
		 WHERE table_schema NOT IN ('mysql', 'sys', 'performance_schema', 'information_schema')
		 ORDER BY data_length + index_length DESC`)
}

func longTransactions(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "long_transactions", "long_transactions", `
		SELECT trx_id, trx_state,
		       TIMESTAMPDIFF(SECOND, trx_started, NOW()) AS trx_age_secs,
		       LEFT(trx_query, 120) AS query
		  FROM information_schema.innodb_trx
		 ORDER BY trx_started`)
}
