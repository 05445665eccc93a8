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
// Package postgres is the PostgreSQL health-check plugin: connection
// saturation, cache hit ratios, autovacuum debt, replication lag, index
// and table bloat signals.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the PostgreSQL plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "postgres",
		Technology: target.TechPostgres,
		Checks: map[string]plugin.CheckFunc{
			"connection_usage":  connectionUsage,
			"cache_hit_ratio":   cacheHitRatio,
			"autovacuum_health": autovacuumHealth,
			"replication_lag":   replicationLag,
			"table_bloat":       tableBloat,
			"long_transactions": longTransactions,
			"slow_queries":      slowQueries,
		},
		StaticTexts: map[string]string{
			"intro": "PostgreSQL health review: connections, buffers, vacuum, replication.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name:        "standard",
				Description: "full PostgreSQL health sweep",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Capacity"},
					{Kind: plugin.ActionRunCheck, Name: "connection_usage"},
					{Kind: plugin.ActionRunCheck, Name: "cache_hit_ratio"},
					{Kind: plugin.ActionHeader, Name: "Maintenance"},
					{Kind: plugin.ActionRunCheck, Name: "autovacuum_health"},
					{Kind: plugin.ActionRunCheck, Name: "table_bloat"},
					{Kind: plugin.ActionHeader, Name: "Activity"},
					{Kind: plugin.ActionRunCheck, Name: "long_transactions"},
					{Kind: plugin.ActionRunCheck, Name: "slow_queries",
						Guard: &plugin.Guard{Setting: "has_pg_stat_statements", Equals: true}},
					{Kind: plugin.ActionHeader, Name: "Replication"},
					{Kind: plugin.ActionRunCheck, Name: "replication_lag"},
				},
			},
			"minimal": {
				Name:        "minimal",
				Description: "connection and cache health only",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "connection_usage"},
					{Kind: plugin.ActionRunCheck, Name: "cache_hit_ratio"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
		Settings: target.Schema{
			"has_pg_stat_statements": {Key: "has_pg_stat_statements", Kind: target.SettingBool, Default: false},
			"bloat_min_table_mb":     {Key: "bloat_min_table_mb", Kind: target.SettingInt, Default: 64},
		},
	}
}

func connectionUsage(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	res, err := cc.Connector.Query(ctx, connector.Query{SQL: `
		SELECT count(*)::float / current_setting('max_connections')::float * 100
		  FROM pg_stat_activity`})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "connection_usage", Status: finding.StatusOK}
	f.Metrics = checkutil.ScalarMetric(res, "connection_percent")
	return f, nil
}

func cacheHitRatio(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "cache_hit_ratio", "cache_hit_ratio_percent", `
		SELECT datname,
		       CASE WHEN blks_hit + blks_read = 0 THEN 100
		            ELSE round(blks_hit::numeric / (blks_hit + blks_read) * 100, 2)
		       END AS hit_ratio_percent
		  FROM pg_stat_database
		 WHERE datname NOT LIKE 'template%'`)
}

func autovacuumHealth(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "autovacuum_health", "dead_tuples", `
		SELECT schemaname, relname, n_dead_tup, n_live_tup,
		       CASE WHEN n_live_tup = 0 THEN 0
		            ELSE round(n_dead_tup::numeric / n_live_tup * 100, 2)
		       END AS dead_percent,
		       last_autovacuum
		  FROM pg_stat_user_tables
		 ORDER BY n_dead_tup DESC`)
}

func replicationLag(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	f, err := checkutil.Table(ctx, cc, "replication_lag", "replication_lag_bytes", `
		SELECT application_name, state,
		       pg_wal_lsn_diff(pg_current_wal_lsn(), replay_lsn) AS lag_bytes
		  FROM pg_stat_replication`)
	if err != nil {
		return nil, err
	}
	if sec := f.Section("replication_lag_bytes"); sec != nil && len(sec.Rows) == 0 {
		f.Status = finding.StatusNotApplicable
		f.ReportFragment = "No streaming replicas attached."
	}
	return f, nil
}

func tableBloat(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	minBytes := int64(cc.Settings.Int("bloat_min_table_mb", 64)) * 1024 * 1024
	return checkutil.Table(ctx, cc, "table_bloat", "large_tables", fmt.Sprintf(`
		SELECT schemaname, relname,
		       pg_total_relation_size(relid) AS total_bytes,
		       n_dead_tup
		  FROM pg_stat_user_tables
		 WHERE pg_total_relation_size(relid) > %d
		 ORDER BY pg_total_relation_size(relid) DESC`, minBytes))
}

func longTransactions(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "long_transactions", "long_transactions", `
		SELECT pid, usename, state,
		       extract(epoch FROM now() - xact_start) AS xact_age_secs,
		       left(query, 120) AS query
		  FROM pg_stat_activity
		 WHERE xact_start IS NOT NULL
		 ORDER BY xact_start`)
}

func slowQueries(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "slow_queries", "slow_queries", `
		SELECT left(query, 120) AS query, calls,
		       round(mean_exec_time::numeric, 2) AS mean_ms,
		       round(total_exec_time::numeric, 2) AS total_ms
		  FROM pg_stat_statements
		 ORDER BY mean_exec_time DESC`)
}
