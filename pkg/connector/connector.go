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
// Package connector defines the interface for pluggable target sessions.
// Implementations can be SQL databases (PostgreSQL, MySQL, ClickHouse),
// CQL clusters, REST services, brokers, or key/value stores.
//
// The interface is intentionally minimal to support diverse backends while
// maintaining a common contract for the check engine: one session, one
// uniform query primitive, one uniform result shape.
package connector

import (
	"context"
)

// Connector holds one target session and dispatches queries against it.
//
// A Connector is not required to be safe for concurrent use; the check
// runner serializes access per instance unless Capabilities advertises
// SafeConcurrency.
type Connector interface {
	// Name returns the connector identifier (e.g., "postgres", "kafka").
	Name() string

	// Describe returns target metadata gathered at or after open time:
	// server version, environment classification, node count, cluster
	// name, and feature flags.
	Describe(ctx context.Context) (*Metadata, error)

	// Query executes one query or operation and returns a uniform result.
	// For SQL/CQL backends Q.SQL carries the statement text; for
	// command-oriented backends Q.Operation/Q.Params or Q.Command are
	// used. Errors are always classified (*Error); no raw driver error
	// escapes this boundary.
	Query(ctx context.Context, q Query) (*Result, error)

	// Ping checks session liveness.
	Ping(ctx context.Context) error

	// Capabilities returns the connector's capabilities.
	Capabilities() Capabilities

	// Close releases the session.
	Close() error
}

// ShellRunner is implemented by connectors that carry an SSH topology.
// Present only when the target configures one.
type ShellRunner interface {
	// Shell runs cmd on host and returns its output. host must be one of
	// the configured SSH hosts.
	Shell(ctx context.Context, cmd, host string) (*ShellResult, error)
}

// Query is the uniform query descriptor. Exactly one of SQL, Command, or
// Operation is set.
type Query struct {
	// SQL carries statement text for SQL/CQL-family backends.
	SQL string

	// Command carries a raw command string for key/value backends
	// (e.g., "INFO replication").
	Command string

	// Operation names a structured operation for REST/command-oriented
	// backends (e.g., "cluster_health").
	Operation string

	// Params are the operation parameters.
	Params map[string]interface{}
}

// Result is the uniform query result shape. Tabular backends fill Columns
// and Rows with column names preserved verbatim; document backends fill
// Document.
type Result struct {
	Columns  []string                 `json:"columns,omitempty"`
	Rows     [][]interface{}          `json:"rows,omitempty"`
	Document map[string]interface{}   `json:"document,omitempty"`
}

// RowCount returns the number of tabular rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ShellResult is the output of one remote shell command.
type ShellResult struct {
	Stdout string
	Stderr string
	Exit   int
}

// Metadata describes the target as observed by Describe.
type Metadata struct {
	// Version is the verbatim server version string.
	Version string

	// Major and Minor are parsed from Version; zero when unparseable.
	Major int
	Minor int

	// Environment classifies the deployment ("production", "staging",
	// "development", "unknown") from whatever signal the backend offers.
	Environment string

	// NodeCount is the number of cluster members; 1 for single nodes.
	NodeCount int

	// ClusterName as reported by the server, if any.
	ClusterName string

	// Features holds backend feature flags, such as
	// "has_pg_stat_statements" for PostgreSQL.
	Features map[string]bool
}

// HasFeature reports whether the named feature flag is set.
func (m *Metadata) HasFeature(name string) bool {
	return m != nil && m.Features[name]
}

// Capabilities describes what a connector supports.
type Capabilities struct {
	// SafeConcurrency indicates the connector may be called from
	// multiple checks concurrently. When false the runner serializes.
	SafeConcurrency bool

	// SupportsSQL indicates Q.SQL is accepted.
	SupportsSQL bool

	// SupportsOperations lists accepted structured operation names.
	SupportsOperations []string

	// SupportsCommands indicates raw Q.Command strings are accepted.
	SupportsCommands bool
}

// SupportsOperation reports whether op is an accepted structured operation.
func (c Capabilities) SupportsOperation(op string) bool {
	for _, known := range c.SupportsOperations {
		if known == op {
			return true
		}
	}
	return false
}
