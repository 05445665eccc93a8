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
// Package cassandra is the Cassandra health-check plugin. Topology and
// schema checks go over CQL; compaction backlog comes from nodetool via
// the SSH topology when one is configured.
package cassandra

import (
	"context"
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the Cassandra plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "cassandra",
		Technology: target.TechCassandra,
		Checks: map[string]plugin.CheckFunc{
			"cluster_topology":     clusterTopology,
			"keyspace_replication": keyspaceReplication,
			"compaction_backlog":   compactionBacklog,
		},
		StaticTexts: map[string]string{
			"intro": "Cassandra health review: topology, replication settings, compaction.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Cluster"},
					{Kind: plugin.ActionRunCheck, Name: "cluster_topology"},
					{Kind: plugin.ActionRunCheck, Name: "keyspace_replication"},
					{Kind: plugin.ActionHeader, Name: "Maintenance"},
					{Kind: plugin.ActionRunCheck, Name: "compaction_backlog"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "cluster_topology"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func clusterTopology(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "cluster_topology", "peers", `
		SELECT peer, data_center, rack, release_version FROM system.peers`)
}

func keyspaceReplication(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Table(ctx, cc, "keyspace_replication", "keyspaces", `
		SELECT keyspace_name, durable_writes FROM system_schema.keyspaces`)
}

var pendingRe = regexp.MustCompile(`pending tasks:\s*(\d+)`)

// compactionBacklog reads nodetool compactionstats over SSH. Without an
// SSH topology the check is not applicable, not an error.
func compactionBacklog(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	f := &finding.Finding{CheckID: "compaction_backlog", Status: finding.StatusOK, StartedAt: started}
	if cc.Shell == nil {
		f.Status = finding.StatusNotApplicable
		f.ReportFragment = "No SSH topology configured; nodetool unavailable."
		return f, nil
	}

	res, err := cc.Shell.Shell(ctx, "nodetool compactionstats", "")
	if err != nil {
		return nil, err
	}
	if res.Exit != 0 {
		f.Status = finding.StatusError
		f.Error = &finding.CheckError{Kind: "other", Message: strings.TrimSpace(res.Stderr)}
		return f, nil
	}

	f.ReportFragment = strings.TrimSpace(res.Stdout)
	if m := pendingRe.FindStringSubmatch(res.Stdout); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			f.Metrics = map[string]interface{}{
				"pending_compactions": decimal.NewFromInt(n),
			}
		}
	}
	return f, nil
}
