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
package trend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/finding"
)

// ingestDelays is the backoff schedule between ingest attempts.
var ingestDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

const ingestAttempts = 3

// IngestError marks a persistent ingest failure after spooling.
type IngestError struct {
	RunID     string
	SpoolPath string
	cause     error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("trend_ingest: run %s spooled to %s: %v", e.RunID, e.SpoolPath, e.cause)
}

func (e *IngestError) Unwrap() error { return e.cause }

// Ingester drives persistence of completed runs: health score, blob
// serialization, optional encryption, retries, and the local spool
// fallback. Workers enqueue completed runs; the ingester serializes
// writes behind the single store connection.
type Ingester struct {
	store    TrendStore
	keys     KeyProvider
	spoolDir string
	logger   *zap.Logger
}

// Config wires an Ingester.
type Config struct {
	Store TrendStore

	// Keys enables findings-blob encryption when non-nil.
	Keys KeyProvider

	// SpoolDir receives run JSON when ingest fails persistently.
	// Defaults to the working directory under .pulse-spool.
	SpoolDir string

	Logger *zap.Logger
}

// NewIngester builds an Ingester with defaults applied.
func NewIngester(cfg Config) *Ingester {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = ".pulse-spool"
	}
	return &Ingester{
		store:    cfg.Store,
		keys:     cfg.Keys,
		spoolDir: cfg.SpoolDir,
		logger:   cfg.Logger,
	}
}

// Persist computes the health score, serializes and optionally encrypts
// the run, and ingests it with retries. On persistent failure the run
// JSON is spooled locally for later replay and an IngestError is
// returned.
func (i *Ingester) Persist(ctx context.Context, run *finding.Run, infra map[string]interface{}) error {
	run.HealthScore = ScoreRun(run.TriggeredRules)

	blob, err := finding.EncodeRun(run)
	if err != nil {
		return fmt.Errorf("serializing run %s: %w", run.RunID, err)
	}

	mode := EncryptionNone
	stored := blob
	if i.keys != nil {
		key, err := i.keys.Key(ctx)
		if err != nil {
			return fmt.Errorf("resolving encryption key: %w", err)
		}
		stored, err = Encrypt(key, blob)
		if err != nil {
			return fmt.Errorf("encrypting findings blob: %w", err)
		}
		mode = EncryptionAESGCM
	}

	rec := &Record{Run: run, Blob: stored, Mode: mode, Infrastructure: infra}

	var lastErr error
	for attempt := 0; attempt < ingestAttempts; attempt++ {
		if attempt > 0 {
			delay := ingestDelays[attempt-1]
			i.logger.Warn("retrying trend ingest",
				zap.String("run", run.RunID),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				return i.spool(run, blob, lastErr)
			case <-time.After(delay):
			}
		}
		if lastErr = i.store.Ingest(ctx, rec); lastErr == nil {
			i.logger.Info("run persisted",
				zap.String("run", run.RunID),
				zap.Int("health_score", run.HealthScore),
				zap.Int("triggered", len(run.TriggeredRules)),
				zap.String("encryption", string(mode)))
			return nil
		}
	}
	return i.spool(run, blob, lastErr)
}

// spool writes the plaintext run JSON to the local spool path so it can
// be replayed once the trend database is reachable again.
func (i *Ingester) spool(run *finding.Run, blob []byte, cause error) error {
	if err := os.MkdirAll(i.spoolDir, 0o755); err != nil {
		return fmt.Errorf("trend_ingest: run %s: %v (spool dir: %w)", run.RunID, cause, err)
	}
	path := filepath.Join(i.spoolDir, fmt.Sprintf("run-%s.json", run.RunID))
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("trend_ingest: run %s: %v (spool write: %w)", run.RunID, cause, err)
	}
	i.logger.Error("trend ingest failed, run spooled",
		zap.String("run", run.RunID),
		zap.String("path", path),
		zap.Error(cause))
	return &IngestError{RunID: run.RunID, SpoolPath: path, cause: cause}
}

// ReplaySpool re-ingests previously spooled runs. Files that ingest
// cleanly are removed; failures stay for the next replay.
func (i *Ingester) ReplaySpool(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(i.spoolDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading spool dir: %w", err)
	}

	replayed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(i.spoolDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			i.logger.Warn("skipping unreadable spool file", zap.String("path", path), zap.Error(err))
			continue
		}
		run, err := finding.DecodeRun(data)
		if err != nil {
			i.logger.Warn("skipping corrupt spool file", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := i.Persist(ctx, run, nil); err != nil {
			return replayed, err
		}
		if err := os.Remove(path); err != nil {
			i.logger.Warn("replayed spool file not removed", zap.String("path", path), zap.Error(err))
		}
		replayed++
	}
	return replayed, nil
}
