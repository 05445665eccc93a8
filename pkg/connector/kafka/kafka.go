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
// Package kafka provides the Kafka connector. Queries are structured
// operation descriptors served through the cluster admin API.
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Operations accepted by Query.
const (
	OpDescribeCluster = "describe_cluster"
	OpListTopics      = "list_topics"
	OpDescribeTopic   = "describe_topic"
	OpConsumerGroups  = "consumer_groups"
	OpDescribeGroup   = "describe_group"
)

// Config holds configuration for the Kafka connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for Kafka.
type Connector struct {
	client sarama.Client
	admin  sarama.ClusterAdmin
	cfg    Config
	logger *zap.Logger
}

// Open dials the brokers and creates a cluster admin session.
func Open(ctx context.Context, cfg Config) (*Connector, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Target == nil {
		return nil, connector.NewError(connector.KindOther, "target is required", nil)
	}

	sc := sarama.NewConfig()
	sc.ClientID = "pulse"
	sc.Net.DialTimeout = cfg.ConnectTimeout
	sc.Net.ReadTimeout = cfg.ConnectTimeout
	sc.Net.WriteTimeout = cfg.ConnectTimeout
	if cfg.Target.Credentials.Username != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		sc.Net.SASL.User = cfg.Target.Credentials.Username
		sc.Net.SASL.Password = cfg.Target.Credentials.Password
	}
	if cfg.Target.Credentials.TLSEnabled {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	brokers := make([]string, 0, len(cfg.Target.Endpoints))
	for _, ep := range cfg.Target.Endpoints {
		if ep.Port == 0 {
			ep.Port = 9092
		}
		brokers = append(brokers, ep.String())
	}

	client, err := sarama.NewClient(brokers, sc)
	if err != nil {
		return nil, classify(err)
	}
	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, classify(err)
	}

	cfg.Logger.Info("kafka connector opened", zap.Strings("brokers", brokers))
	return &Connector{client: client, admin: admin, cfg: cfg, logger: cfg.Logger}, nil
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "kafka" }

// Describe reports broker count and controller. Kafka does not expose a
// version string over the wire, so the configured client version is used.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	brokers, controllerID, err := c.admin.DescribeCluster()
	if err != nil {
		return nil, classify(err)
	}

	meta := &connector.Metadata{
		Version:     "unknown",
		Environment: "unknown",
		NodeCount:   len(brokers),
		ClusterName: c.cfg.Target.ClusterName,
		Features: map[string]bool{
			"has_controller": controllerID >= 0,
		},
	}
	return meta, nil
}

// Query executes a structured operation descriptor against the admin API.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.Operation == "" {
		return nil, connector.ErrNotSupported("kafka connector accepts structured operations only")
	}

	switch q.Operation {
	case OpDescribeCluster:
		return c.describeCluster()
	case OpListTopics:
		return c.listTopics()
	case OpDescribeTopic:
		name, _ := q.Params["topic"].(string)
		if name == "" {
			return nil, connector.NewError(connector.KindOther,
				"describe_topic requires a topic param", nil)
		}
		return c.describeTopic(name)
	case OpConsumerGroups:
		return c.consumerGroups()
	case OpDescribeGroup:
		name, _ := q.Params["group"].(string)
		if name == "" {
			return nil, connector.NewError(connector.KindOther,
				"describe_group requires a group param", nil)
		}
		return c.describeGroup(name)
	default:
		return nil, connector.ErrNotSupported(fmt.Sprintf("unknown operation %q", q.Operation))
	}
}

func (c *Connector) describeCluster() (*connector.Result, error) {
	brokers, controllerID, err := c.admin.DescribeCluster()
	if err != nil {
		return nil, classify(err)
	}
	nodes := make([]interface{}, 0, len(brokers))
	for _, b := range brokers {
		nodes = append(nodes, map[string]interface{}{
			"id":            decimal.NewFromInt(int64(b.ID())),
			"addr":          b.Addr(),
			"is_controller": b.ID() == controllerID,
		})
	}
	return &connector.Result{Document: map[string]interface{}{
		"broker_count":  decimal.NewFromInt(int64(len(brokers))),
		"controller_id": decimal.NewFromInt(int64(controllerID)),
		"brokers":       nodes,
	}}, nil
}

func (c *Connector) listTopics() (*connector.Result, error) {
	topics, err := c.admin.ListTopics()
	if err != nil {
		return nil, classify(err)
	}
	result := &connector.Result{Columns: []string{"topic", "partitions", "replication_factor"}}
	for name, detail := range topics {
		result.Rows = append(result.Rows, []interface{}{
			name,
			decimal.NewFromInt(int64(detail.NumPartitions)),
			decimal.NewFromInt(int64(detail.ReplicationFactor)),
		})
	}
	return result, nil
}

func (c *Connector) describeTopic(name string) (*connector.Result, error) {
	metas, err := c.admin.DescribeTopics([]string{name})
	if err != nil {
		return nil, classify(err)
	}
	if len(metas) == 0 {
		return nil, connector.NewError(connector.KindOther, "topic not found", nil)
	}
	tm := metas[0]
	if tm.Err != sarama.ErrNoError {
		return nil, classify(tm.Err)
	}

	underReplicated := 0
	offline := 0
	for _, p := range tm.Partitions {
		if len(p.Isr) < len(p.Replicas) {
			underReplicated++
		}
		if p.Leader < 0 {
			offline++
		}
	}
	return &connector.Result{Document: map[string]interface{}{
		"topic":                      tm.Name,
		"partition_count":            decimal.NewFromInt(int64(len(tm.Partitions))),
		"under_replicated_partition": decimal.NewFromInt(int64(underReplicated)),
		"offline_partitions":         decimal.NewFromInt(int64(offline)),
		"is_internal":                tm.IsInternal,
	}}, nil
}

func (c *Connector) consumerGroups() (*connector.Result, error) {
	groups, err := c.admin.ListConsumerGroups()
	if err != nil {
		return nil, classify(err)
	}
	result := &connector.Result{Columns: []string{"group", "protocol_type"}}
	for name, protocol := range groups {
		result.Rows = append(result.Rows, []interface{}{name, protocol})
	}
	return result, nil
}

func (c *Connector) describeGroup(name string) (*connector.Result, error) {
	descs, err := c.admin.DescribeConsumerGroups([]string{name})
	if err != nil {
		return nil, classify(err)
	}
	if len(descs) == 0 {
		return nil, connector.NewError(connector.KindOther, "group not found", nil)
	}
	d := descs[0]
	return &connector.Result{Document: map[string]interface{}{
		"group":        d.GroupId,
		"state":        d.State,
		"protocol":     d.Protocol,
		"member_count": decimal.NewFromInt(int64(len(d.Members))),
	}}, nil
}

// Ping refreshes broker metadata.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.client.RefreshMetadata(); err != nil {
		return classify(err)
	}
	return nil
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{
		SupportsOperations: []string{
			OpDescribeCluster, OpListTopics, OpDescribeTopic,
			OpConsumerGroups, OpDescribeGroup,
		},
	}
}

// Close releases the admin session and the underlying client.
func (c *Connector) Close() error {
	c.logger.Debug("closing kafka connector")
	return c.admin.Close()
}

// classify maps sarama errors onto the closed taxonomy.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sarama.ErrSASLAuthenticationFailed):
		return connector.NewError(connector.KindAuth, "", err)
	case errors.Is(err, sarama.ErrTopicAuthorizationFailed),
		errors.Is(err, sarama.ErrGroupAuthorizationFailed),
		errors.Is(err, sarama.ErrClusterAuthorizationFailed):
		return connector.NewError(connector.KindPermission, "", err)
	case errors.Is(err, sarama.ErrRequestTimedOut):
		return connector.NewError(connector.KindTimeout, "", err)
	case errors.Is(err, sarama.ErrOutOfBrokers), errors.Is(err, sarama.ErrClosedClient),
		errors.Is(err, sarama.ErrNotConnected):
		return connector.NewError(connector.KindConnection, "", err)
	case errors.Is(err, sarama.ErrBrokerNotAvailable), errors.Is(err, sarama.ErrLeaderNotAvailable):
		return connector.NewError(connector.KindUnavailable, "", err)
	case errors.Is(err, sarama.ErrUnsupportedVersion):
		return connector.NewError(connector.KindNotSupported, "", err)
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
