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
// Package sqlite implements the trend store on a local SQLite file, for
// development and single-host deployments. Same ingest semantics as the
// central PostgreSQL store: one transaction per run, replace on
// (company, target, started_at), triggered rules replaced with the run.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/teradata-labs/pulse/pkg/trend"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id                  TEXT PRIMARY KEY,
	company_id              TEXT NOT NULL,
	technology              TEXT NOT NULL,
	target_host             TEXT NOT NULL,
	cluster_name            TEXT,
	started_at              TEXT NOT NULL,
	ended_at                TEXT,
	findings_blob           BLOB NOT NULL,
	encryption_mode         TEXT NOT NULL DEFAULT 'none',
	version_major           INTEGER,
	version_minor           INTEGER,
	node_count              INTEGER,
	infrastructure_metadata TEXT,
	health_score            INTEGER,
	UNIQUE (company_id, target_host, started_at)
);

CREATE TABLE IF NOT EXISTS triggered_rules (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
	check_id        TEXT NOT NULL,
	metric_name     TEXT NOT NULL,
	severity        TEXT NOT NULL,
	score           INTEGER NOT NULL,
	reason          TEXT,
	recommendations TEXT,
	triggering_row  TEXT
);

CREATE INDEX IF NOT EXISTS idx_triggered_rules_run ON triggered_rules (run_id);
`

// Config holds configuration for the SQLite trend store.
type Config struct {
	// Path is the database file; ":memory:" works for tests.
	Path   string
	Logger *zap.Logger
}

// Store implements trend.TrendStore on SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens the database file and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite trend store requires a path")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite trend store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating trend schema: %w", err)
	}

	cfg.Logger.Info("trend store opened",
		zap.String("backend", "sqlite"),
		zap.String("path", cfg.Path))
	return &Store{db: db, logger: cfg.Logger}, nil
}

// Ingest persists one run atomically.
func (s *Store) Ingest(ctx context.Context, rec *trend.Record) error {
	run := rec.Run

	infraJSON, err := json.Marshal(rec.Infrastructure)
	if err != nil {
		return fmt.Errorf("marshaling infrastructure metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting ingest transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Replace any prior run for the same tuple; the foreign key
	// cascades its triggered rules away.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM runs
		 WHERE company_id = ? AND target_host = ? AND started_at = ?`,
		run.Target.Company, run.Target.Host, run.StartedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	); err != nil {
		return fmt.Errorf("replacing prior run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, company_id, technology, target_host,
		                  cluster_name, started_at, ended_at, findings_blob,
		                  encryption_mode, version_major, version_minor,
		                  node_count, infrastructure_metadata, health_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Target.Company,
		run.Target.Technology,
		run.Target.Host,
		run.Target.ClusterName,
		run.StartedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
		run.EndedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
		rec.Blob,
		string(rec.Mode),
		run.VersionMetadata.Major,
		run.VersionMetadata.Minor,
		run.VersionMetadata.NodeCount,
		string(infraJSON),
		run.HealthScore,
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, tr := range run.TriggeredRules {
		recsJSON, err := json.Marshal(tr.Recommendations)
		if err != nil {
			return fmt.Errorf("marshaling recommendations: %w", err)
		}
		rowJSON, err := json.Marshal(tr.TriggeringRow)
		if err != nil {
			return fmt.Errorf("marshaling triggering row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO triggered_rules (run_id, check_id, metric_name,
			                             severity, score, reason,
			                             recommendations, triggering_row)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, tr.CheckID, tr.MetricName, tr.Severity, tr.Score,
			tr.Reason, string(recsJSON), string(rowJSON),
		); err != nil {
			return fmt.Errorf("inserting triggered rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ingest: %w", err)
	}
	s.logger.Debug("run ingested",
		zap.String("run", run.RunID),
		zap.Int("triggered", len(run.TriggeredRules)))
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements trend.TrendStore.
var _ trend.TrendStore = (*Store)(nil)
