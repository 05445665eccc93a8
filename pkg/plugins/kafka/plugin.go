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
// Package kafka is the Kafka health-check plugin.
package kafka

import (
	"context"
	_ "embed"
	"time"

	"github.com/teradata-labs/pulse/pkg/connector"
	ckafka "github.com/teradata-labs/pulse/pkg/connector/kafka"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/internal/checkutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

//go:embed rules.json
var rulesJSON []byte

// New builds the Kafka plugin.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		ID:         "kafka",
		Technology: target.TechKafka,
		Checks: map[string]plugin.CheckFunc{
			"cluster_overview": clusterOverview,
			"topic_health":     topicHealth,
			"consumer_groups":  consumerGroups,
		},
		StaticTexts: map[string]string{
			"intro": "Kafka health review: brokers, topic replication, consumer groups.",
		},
		Reports: map[string]*plugin.Report{
			"standard": {
				Name: "standard",
				Actions: []plugin.Action{
					{Kind: plugin.ActionStaticText, Name: "intro"},
					{Kind: plugin.ActionHeader, Name: "Cluster"},
					{Kind: plugin.ActionRunCheck, Name: "cluster_overview"},
					{Kind: plugin.ActionHeader, Name: "Topics"},
					{Kind: plugin.ActionRunCheck, Name: "topic_health"},
					{Kind: plugin.ActionHeader, Name: "Consumers"},
					{Kind: plugin.ActionRunCheck, Name: "consumer_groups"},
				},
			},
			"minimal": {
				Name: "minimal",
				Actions: []plugin.Action{
					{Kind: plugin.ActionRunCheck, Name: "cluster_overview"},
				},
			},
		},
		RuleSetJSON: rulesJSON,
	}
}

func clusterOverview(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.Doc(ctx, cc, "cluster_overview", ckafka.OpDescribeCluster, nil,
		"broker_count", "controller_id")
}

// topicHealth lists topics then describes each one, collecting
// replication state per topic into a single section.
func topicHealth(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	started := time.Now()
	topics, err := cc.Connector.Query(ctx, connector.Query{Operation: ckafka.OpListTopics})
	if err != nil {
		return nil, err
	}

	sec := finding.Section{
		Name:    "topic_health",
		Columns: []string{"topic", "partitions", "under_replicated", "offline"},
	}
	limit := cc.Settings.Int("row_limit", 10)
	for _, row := range topics.Rows {
		name, _ := row[0].(string)
		detail, err := cc.Connector.Query(ctx, connector.Query{
			Operation: ckafka.OpDescribeTopic,
			Params:    map[string]interface{}{"topic": name},
		})
		if err != nil {
			return nil, err
		}
		sec.Rows = append(sec.Rows, []interface{}{
			name,
			detail.Document["partition_count"],
			detail.Document["under_replicated_partition"],
			detail.Document["offline_partitions"],
		})
		if limit > 0 && len(sec.Rows) >= limit {
			break
		}
	}

	return &finding.Finding{
		CheckID:   "topic_health",
		Status:    finding.StatusOK,
		StartedAt: started,
		Sections:  []finding.Section{sec},
	}, nil
}

func consumerGroups(ctx context.Context, cc *plugin.CheckContext) (*finding.Finding, error) {
	return checkutil.TableQuery(ctx, cc, "consumer_groups", "consumer_groups",
		connector.Query{Operation: ckafka.OpConsumerGroups})
}
