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
// Package opensearch provides the OpenSearch connector. Queries are
// structured operation descriptors served over the REST API; responses
// come back as documents.
package opensearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Operations accepted by Query.
const (
	OpClusterHealth = "cluster_health"
	OpClusterStats  = "cluster_stats"
	OpNodesStats    = "nodes_stats"
	OpIndexStats    = "index_stats"
	OpPendingTasks  = "pending_tasks"
	OpClusterInfo   = "cluster_info"
)

var operationPaths = map[string]string{
	OpClusterHealth: "/_cluster/health",
	OpClusterStats:  "/_cluster/stats",
	OpNodesStats:    "/_nodes/stats",
	OpIndexStats:    "/_stats",
	OpPendingTasks:  "/_cluster/pending_tasks",
	OpClusterInfo:   "/",
}

// Config holds configuration for the OpenSearch connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for OpenSearch.
type Connector struct {
	client *opensearchgo.Client
	cfg    Config
	logger *zap.Logger
}

// Open builds the REST client and verifies it against the root endpoint.
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

	scheme := "http"
	var transport http.RoundTripper
	if cfg.Target.Credentials.TLSEnabled {
		scheme = "https"
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	addrs := make([]string, 0, len(cfg.Target.Endpoints))
	for _, ep := range cfg.Target.Endpoints {
		if ep.Port == 0 {
			ep.Port = 9200
		}
		addrs = append(addrs, fmt.Sprintf("%s://%s", scheme, ep.String()))
	}

	client, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses: addrs,
		Username:  cfg.Target.Credentials.Username,
		Password:  cfg.Target.Credentials.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, connector.NewError(connector.KindOther, "building opensearch client", err)
	}

	c := &Connector{client: client, cfg: cfg, logger: cfg.Logger}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if _, err := c.get(pingCtx, "/"); err != nil {
		return nil, err
	}

	cfg.Logger.Info("opensearch connector opened", zap.Strings("addrs", addrs))
	return c, nil
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "opensearch" }

// Describe reads version and cluster shape from the root and health
// endpoints.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	root, err := c.get(ctx, "/")
	if err != nil {
		return nil, err
	}

	version := ""
	if v, ok := root["version"].(map[string]interface{}); ok {
		if n, ok := v["number"].(string); ok {
			version = n
		}
	}
	major, minor := sqlutil.ParseVersion(version)

	meta := &connector.Metadata{
		Version:     version,
		Major:       major,
		Minor:       minor,
		Environment: "unknown",
		NodeCount:   1,
		ClusterName: c.cfg.Target.ClusterName,
		Features:    map[string]bool{},
	}
	if name, ok := root["cluster_name"].(string); ok && meta.ClusterName == "" {
		meta.ClusterName = name
	}

	if health, err := c.get(ctx, "/_cluster/health"); err == nil {
		if n, ok := health["number_of_nodes"].(decimal.Decimal); ok {
			meta.NodeCount = int(n.IntPart())
		}
		if status, ok := health["status"].(string); ok {
			meta.Features["cluster_green"] = status == "green"
		}
	}
	return meta, nil
}

// Query executes a structured operation descriptor. index_stats accepts
// an optional index param to scope the request.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.Operation == "" {
		return nil, connector.ErrNotSupported("opensearch connector accepts structured operations only")
	}
	path, ok := operationPaths[q.Operation]
	if !ok {
		return nil, connector.ErrNotSupported(fmt.Sprintf("unknown operation %q", q.Operation))
	}
	if q.Operation == OpIndexStats {
		if index, _ := q.Params["index"].(string); index != "" {
			path = "/" + index + "/_stats"
		}
	}

	doc, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return &connector.Result{Document: doc}, nil
}

// get performs a GET against the cluster and decodes the JSON body.
// Numbers are decoded via json.Number and converted to decimals so
// large counters survive intact.
func (c *Connector) get(ctx context.Context, path string) (map[string]interface{}, *connector.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, connector.NewError(connector.KindOther, "building request", err)
	}
	res, err := c.client.Perform(req)
	if err != nil {
		return nil, connector.Classify(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, connector.NewError(connector.KindConnection, "reading response", err)
	}
	if res.StatusCode >= 400 {
		return nil, classifyStatus(res.StatusCode, string(body))
	}

	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, connector.NewError(connector.KindOther, "decoding response", err)
	}
	return convertNumbers(raw), nil
}

func convertNumbers(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = convertValue(v)
	}
	return out
}

func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d
		}
		return val.String()
	case map[string]interface{}:
		return convertNumbers(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	default:
		return v
	}
}

// Ping checks cluster reachability.
func (c *Connector) Ping(ctx context.Context) error {
	if _, err := c.get(ctx, "/"); err != nil {
		return err
	}
	return nil
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{
		SupportsOperations: []string{
			OpClusterHealth, OpClusterStats, OpNodesStats,
			OpIndexStats, OpPendingTasks, OpClusterInfo,
		},
	}
}

// Close is a no-op; the REST client holds no persistent session.
func (c *Connector) Close() error {
	c.logger.Debug("closing opensearch connector")
	return nil
}

// classifyStatus maps HTTP status codes onto the closed taxonomy.
func classifyStatus(status int, body string) *connector.Error {
	msg := fmt.Sprintf("status %d: %s", status, truncate(body, 200))
	switch status {
	case http.StatusUnauthorized:
		return connector.NewError(connector.KindAuth, msg, nil)
	case http.StatusForbidden:
		return connector.NewError(connector.KindPermission, msg, nil)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return connector.NewError(connector.KindTimeout, msg, nil)
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return connector.NewError(connector.KindUnavailable, msg, nil)
	case http.StatusBadRequest:
		return connector.NewError(connector.KindSyntax, msg, nil)
	}
	return connector.NewError(connector.KindOther, msg, nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
