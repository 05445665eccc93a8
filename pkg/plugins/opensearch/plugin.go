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
// Package opensearch is the OpenSearch health-check plugin. All checks
// go through the REST operations the connector exposes.
package opensearch

import (
	"context"
	_ "embed"
	"time"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the OpenSearch plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "opensearch",
		Technology: target.TechOpenSearch,
		Checks: map[string]plugin.CheckFunc{
			"cluster_health": clusterHealth,
			"pending_tasks":  pendingTasks,
			"index_stats":    indexStats,
		},
		StaticTexts: map[string]string{
			"intro": "OpenSearch health review: cluster state, shards, pending tasks.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Cluster"},
					{Kind: plugin.ActionRunCheck, Name: "cluster_health"},
					{Kind: plugin.ActionRunCheck, Name: "pending_tasks"},
					{Kind: plugin.ActionHeader, Name: "Indices"},
					{Kind: plugin.ActionRunCheck, Name: "index_stats"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "cluster_health"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func clusterHealth(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Operation: "cluster_health"})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "cluster_health", Status: finding.StatusOK, StartedAt: started}
	f.Metrics = checkutil.Metrics(res.Document,
		"number_of_nodes", "active_shards", "relocating_shards",
		"initializing_shards", "unassigned_shards", "active_shards_percent_as_number")
	if status, ok := res.Document["status"].(string); ok {
		if f.Metrics == nil {
			f.Metrics = map[string]interface{}{}
		}
		f.Metrics["cluster_status"] = status
	}
	return f, nil
}

func pendingTasks(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	res, err := cc.Connector.Query(ctx, connector.Query{Operation: "pending_tasks"})
	if err != nil {
		return nil, err
	}
	f := &finding.Finding{CheckID: "pending_tasks", Status: finding.StatusOK, StartedAt: started}
	count := 0
	if tasks, ok := res.Document["tasks"].([]interface{}); ok {
		count = len(tasks)
	}
	f.Metrics = map[string]interface{}{"pending_task_count": count}
	return f, nil
}

func indexStats(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Doc(ctx, cc, "index_stats", "index_stats", nil)
}
