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
// Package postgres implements the trend store over the central
// PostgreSQL trend database. All writes go through the three stored
// procedures save_run, save_triggered_rules, and update_run_metadata,
// inside one transaction per run.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/trend"
)

// Config holds configuration for the trend store.
type Config struct {
	// DSN is a lib/pq connection string or URL.
	DSN string

	// Migrate applies embedded schema migrations at open time.
	Migrate bool

	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Store implements trend.TrendStore.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to the trend database and optionally migrates it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening trend database: %w", err)
	}
	// Single writer; workers enqueue completed runs behind it.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to trend database: %w", err)
	}

	if cfg.Migrate {
		migrator, err := NewMigrator(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := migrator.MigrateUp(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrating trend database: %w", err)
		}
	}

	cfg.Logger.Info("trend store opened", zap.String("backend", "postgres"))
	return &Store{db: db, logger: cfg.Logger}, nil
}

// Ingest persists one run atomically: run row, triggered rules, and
// metadata commit together or not at all.
func (s *Store) Ingest(ctx context.Context, rec *trend.Record) error {
	run := rec.Run

	rulesJSON, err := json.Marshal(run.TriggeredRules)
	if err != nil {
		return fmt.Errorf("marshaling triggered rules: %w", err)
	}
	infraJSON, err := json.Marshal(rec.Infrastructure)
	if err != nil {
		return fmt.Errorf("marshaling infrastructure metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting ingest transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"CALL save_run($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		run.RunID,
		run.Target.Company,
		run.Target.Technology,
		run.Target.Host,
		nullable(run.Target.ClusterName),
		run.StartedAt,
		run.EndedAt,
		rec.Blob,
		string(rec.Mode),
	); err != nil {
		return fmt.Errorf("save_run: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"CALL save_triggered_rules($1, $2)",
		run.RunID, rulesJSON,
	); err != nil {
		return fmt.Errorf("save_triggered_rules: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"CALL update_run_metadata($1, $2, $3, $4, $5, $6, $7)",
		run.RunID,
		run.VersionMetadata.Major,
		run.VersionMetadata.Minor,
		nullable(run.Target.ClusterName),
		run.VersionMetadata.NodeCount,
		infraJSON,
		run.HealthScore,
	); err != nil {
		return fmt.Errorf("update_run_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ingest: %w", err)
	}
	s.logger.Debug("run ingested",
		zap.String("run", run.RunID),
		zap.Int("triggered", len(run.TriggeredRules)))
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Ensure Store implements trend.TrendStore.
var _ trend.TrendStore = (*Store)(nil)
