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
// Package trend persists completed runs to the central trend database
// for longitudinal analysis. A run row, its triggered rules, and its
// metadata commit in one transaction; partial runs are never visible.
package trend

import (
	"context"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/rules"
)

// EncryptionMode records how the findings blob was written.
type EncryptionMode string

const (
	EncryptionNone   EncryptionMode = "none"
	EncryptionAESGCM EncryptionMode = "aes256_gcm"
)

// Record is the atomic unit of ingest: the run, its serialized findings
// blob, and the run metadata columns.
type Record struct {
	Run            *finding.Run
	Blob           []byte
	Mode           EncryptionMode
	Infrastructure map[string]interface{}
}

// TrendStore is the ingest backend. Ingest must be atomic: a reader
// observes either the whole run with all its triggered rules, or
// nothing. Re-ingesting the same (company, target, started_at) replaces
// the prior row and its triggered rules.
type TrendStore interface {
	Ingest(ctx context.Context, rec *Record) error
	Close() error
}

// HealthScore is the deterministic run score: 100 minus 20 per critical,
// 10 per high, 5 per medium triggered rule, floored at zero.
func HealthScore(critical, high, medium int) int {
	score := 100 - 20*critical - 10*high - 5*medium
	if score < 0 {
		return 0
	}
	return score
}

// ScoreRun computes the health score from a run's triggered rules.
func ScoreRun(triggered []finding.TriggeredRule) int {
	var critical, high, medium int
	for _, tr := range triggered {
		switch tr.Severity {
		case rules.SeverityCritical:
			critical++
		case rules.SeverityHigh:
			high++
		case rules.SeverityMedium:
			medium++
		}
	}
	return HealthScore(critical, high, medium)
}
