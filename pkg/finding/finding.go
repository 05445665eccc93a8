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
// Package finding defines the structured output of checks and the run
// document persisted to the trend store.
package finding

import (
	"fmt"
	"time"
)

// Status classifies the outcome of one check.
type Status string

const (
	StatusOK            Status = "ok"
	StatusWarning       Status = "warning"
	StatusError         Status = "error"
	StatusNotApplicable Status = "not_applicable"
	StatusSkipped       Status = "skipped"
)

// Statuses lists every valid status.
var Statuses = []Status{
	StatusOK, StatusWarning, StatusError, StatusNotApplicable, StatusSkipped,
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Section is one logical result inside a Finding: a named table, a
// document summary, or both.
type Section struct {
	Name         string          `json:"name"`
	Columns      []string        `json:"columns,omitempty"`
	Rows         [][]interface{} `json:"rows,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	SeverityHint string          `json:"severity_hint,omitempty"`
}

// CheckError is the classified failure attached to an error Finding.
type CheckError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Finding is the structured output of one check. A check always produces
// one, including on failure.
type Finding struct {
	CheckID        string                 `json:"-"`
	Status         Status                 `json:"status"`
	Sections       []Section              `json:"sections,omitempty"`
	Metrics        map[string]interface{} `json:"metrics,omitempty"`
	ReportFragment string                 `json:"report_fragment,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	DurationMS     int64                  `json:"duration_ms"`
	Error          *CheckError            `json:"error,omitempty"`
}

// Section returns the named section, or nil.
func (f *Finding) Section(name string) *Section {
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// TriggeredRule records one rule that matched one row or scalar.
type TriggeredRule struct {
	RunID           string                 `json:"-"`
	CheckID         string                 `json:"check_id"`
	MetricName      string                 `json:"metric_name"`
	Severity        string                 `json:"severity"`
	Score           int                    `json:"score"`
	Reason          string                 `json:"reason"`
	Recommendations []string               `json:"recommendations"`
	TriggeringRow   map[string]interface{} `json:"triggering_row,omitempty"`
}

// TargetInfo is the target slice of the run document.
type TargetInfo struct {
	Technology  string `json:"technology"`
	Host        string `json:"host"`
	Port        int    `json:"port,omitempty"`
	ClusterName string `json:"cluster_name,omitempty"`
	Company     string `json:"company"`
}

// VersionMetadata is the observed server identity of the run document.
type VersionMetadata struct {
	Version     string `json:"version"`
	Major       int    `json:"major"`
	Minor       int    `json:"minor"`
	Environment string `json:"environment"`
	NodeCount   int    `json:"node_count,omitempty"`
}

// Run is the complete document for one pipeline execution against one
// target.
type Run struct {
	RunID           string          `json:"run_id"`
	Target          TargetInfo      `json:"target"`
	VersionMetadata VersionMetadata `json:"version_metadata"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         time.Time       `json:"ended_at"`
	Findings        *Store          `json:"findings"`
	TriggeredRules  []TriggeredRule `json:"triggered_rules"`
	HealthScore     int             `json:"health_score"`
}

// Validate checks the run document for structural errors before ingest.
func (r *Run) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("run has no run_id")
	}
	if r.Target.Company == "" {
		return fmt.Errorf("run %s has no company", r.RunID)
	}
	if r.Findings == nil {
		return fmt.Errorf("run %s has no findings store", r.RunID)
	}
	for _, f := range r.Findings.All() {
		if !f.Status.Valid() {
			return fmt.Errorf("run %s: check %s has invalid status %q", r.RunID, f.CheckID, f.Status)
		}
	}
	return nil
}
