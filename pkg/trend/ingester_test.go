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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/pulse/pkg/finding"
)

type fakeStore struct {
	records []*Record
	failN   int
	calls   int
}

func (f *fakeStore) Ingest(ctx context.Context, rec *Record) error {
	f.calls++
	if f.calls <= f.failN {
		return errors.New("trend db unreachable")
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func fastIngestRetries(t *testing.T) {
	t.Helper()
	saved := ingestDelays
	ingestDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { ingestDelays = saved })
}

func ingestRun(t *testing.T, runID string) *finding.Run {
	t.Helper()
	store := finding.NewStore()
	require.NoError(t, store.Put(&finding.Finding{
		CheckID: "check_a",
		Status:  finding.StatusOK,
	}))
	store.Freeze()
	return &finding.Run{
		RunID: runID,
		Target: finding.TargetInfo{
			Technology: "postgres", Host: "db1", Company: "acme",
		},
		StartedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2026, 8, 20, 10, 1, 0, 0, time.UTC),
		Findings:  store,
		TriggeredRules: []finding.TriggeredRule{
			{CheckID: "check_a", MetricName: "m", Severity: "critical"},
			{CheckID: "check_a", MetricName: "m", Severity: "medium"},
		},
	}
}

func TestPersist_ScoresAndIngests(t *testing.T) {
	fastIngestRetries(t)
	store := &fakeStore{}
	ing := NewIngester(Config{Store: store, SpoolDir: t.TempDir()})

	run := ingestRun(t, "run-1")
	err := ing.Persist(context.Background(), run, map[string]interface{}{"environment": "production"})
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, 75, run.HealthScore)
	assert.Equal(t, EncryptionNone, rec.Mode)
	assert.Equal(t, "production", rec.Infrastructure["environment"])
	assert.Contains(t, string(rec.Blob), `"run_id":"run-1"`)
}

func TestPersist_RetriesTransientFailure(t *testing.T) {
	fastIngestRetries(t)
	store := &fakeStore{failN: 2}
	ing := NewIngester(Config{Store: store, SpoolDir: t.TempDir()})

	err := ing.Persist(context.Background(), ingestRun(t, "run-2"), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Len(t, store.records, 1)
}

func TestPersist_SpoolsOnPersistentFailure(t *testing.T) {
	fastIngestRetries(t)
	spool := t.TempDir()
	store := &fakeStore{failN: 100}
	ing := NewIngester(Config{Store: store, SpoolDir: spool})

	err := ing.Persist(context.Background(), ingestRun(t, "run-3"), nil)
	require.Error(t, err)

	var ierr *IngestError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "run-3", ierr.RunID)

	data, readErr := os.ReadFile(filepath.Join(spool, "run-run-3.json"))
	require.NoError(t, readErr)
	// Spool is plaintext JSON so it can be replayed.
	back, decErr := finding.DecodeRun(data)
	require.NoError(t, decErr)
	assert.Equal(t, "run-3", back.RunID)
}

func TestPersist_EncryptsBlob(t *testing.T) {
	fastIngestRetries(t)
	key := StaticKey(bytes.Repeat([]byte{7}, 32))
	store := &fakeStore{}
	ing := NewIngester(Config{Store: store, Keys: key, SpoolDir: t.TempDir()})

	err := ing.Persist(context.Background(), ingestRun(t, "run-4"), nil)
	require.NoError(t, err)

	rec := store.records[0]
	assert.Equal(t, EncryptionAESGCM, rec.Mode)
	assert.NotContains(t, string(rec.Blob), "run-4")

	plain, err := Decrypt(bytes.Repeat([]byte{7}, 32), rec.Blob)
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"run_id":"run-4"`)
}

func TestReplaySpool(t *testing.T) {
	fastIngestRetries(t)
	spool := t.TempDir()

	// First ingester fails everything so the run lands in the spool.
	failing := NewIngester(Config{Store: &fakeStore{failN: 100}, SpoolDir: spool})
	require.Error(t, failing.Persist(context.Background(), ingestRun(t, "run-5"), nil))

	// Garbage files are skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(spool, "junk.json"), []byte("not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(spool, "notes.txt"), []byte("ignore"), 0o600))

	store := &fakeStore{}
	ing := NewIngester(Config{Store: store, SpoolDir: spool})
	replayed, err := ing.ReplaySpool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	require.Len(t, store.records, 1)
	assert.Equal(t, "run-5", store.records[0].Run.RunID)

	// The replayed file is removed; the garbage stays.
	_, statErr := os.Stat(filepath.Join(spool, "run-run-5.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReplaySpool_MissingDirIsEmpty(t *testing.T) {
	ing := NewIngester(Config{Store: &fakeStore{}, SpoolDir: filepath.Join(t.TempDir(), "absent")})
	replayed, err := ing.ReplaySpool(context.Background())
	require.NoError(t, err)
	assert.Zero(t, replayed)
}
