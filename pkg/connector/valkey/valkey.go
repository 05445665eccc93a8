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
// Package valkey provides the Valkey/Redis connector. Queries are raw
// command strings; INFO and CONFIG GET output is parsed into documents.
package valkey

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Config holds configuration for the Valkey connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for Valkey and Redis.
type Connector struct {
	client *redis.Client
	cfg    Config
	logger *zap.Logger
}

// Open establishes the session and verifies it with a ping.
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

	ep := cfg.Target.Primary()
	if ep.Port == 0 {
		ep.Port = 6379
	}
	opts := &redis.Options{
		Addr:        ep.String(),
		Username:    cfg.Target.Credentials.Username,
		Password:    cfg.Target.Credentials.Password,
		DialTimeout: cfg.ConnectTimeout,
	}
	if cfg.Target.Credentials.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, classify(err)
	}

	cfg.Logger.Info("valkey connector opened", zap.String("addr", opts.Addr))
	return &Connector{client: client, cfg: cfg, logger: cfg.Logger}, nil
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "valkey" }

// Describe reads server version and replication role from INFO.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	info, err := c.client.Info(ctx, "server", "replication").Result()
	if err != nil {
		return nil, classify(err)
	}
	fields := parseInfo(info)

	version, _ := fields["valkey_version"].(string)
	if version == "" {
		version, _ = fields["redis_version"].(string)
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

	if role, ok := fields["role"].(string); ok {
		meta.Features["is_replica"] = role != "master"
	}
	if replicas, ok := fields["connected_slaves"].(decimal.Decimal); ok {
		meta.NodeCount = 1 + int(replicas.IntPart())
	}
	if mode, ok := fields["redis_mode"].(string); ok {
		meta.Features["cluster_mode"] = mode == "cluster"
	}
	return meta, nil
}

// Query executes a raw command string. INFO output is parsed into a
// document; everything else is returned as a single-value document.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.Command == "" {
		return nil, connector.ErrNotSupported("valkey connector accepts raw commands only")
	}

	parts := strings.Fields(q.Command)
	args := make([]interface{}, len(parts))
	for i, p := range parts {
		args[i] = p
	}

	val, err := c.client.Do(ctx, args...).Result()
	if err != nil {
		return nil, classify(err)
	}

	switch strings.ToUpper(parts[0]) {
	case "INFO":
		if s, ok := val.(string); ok {
			return &connector.Result{Document: parseInfo(s)}, nil
		}
	case "CONFIG":
		if m, ok := val.(map[interface{}]interface{}); ok {
			doc := make(map[string]interface{}, len(m))
			for k, v := range m {
				if key, ok := k.(string); ok {
					doc[key] = normalize(v)
				}
			}
			return &connector.Result{Document: doc}, nil
		}
	}
	return &connector.Result{Document: map[string]interface{}{"value": normalize(val)}}, nil
}

// parseInfo splits INFO output into key/value pairs. Section headers and
// comments are skipped; numeric values become decimals.
func parseInfo(info string) map[string]interface{} {
	doc := map[string]interface{}{}
	for _, line := range strings.Split(info, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		doc[key] = normalize(value)
	}
	return doc
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
		return val
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// Ping checks session liveness.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{SupportsCommands: true}
}

// Close releases the session.
func (c *Connector) Close() error {
	c.logger.Debug("closing valkey connector")
	return c.client.Close()
}

// classify maps go-redis errors onto the closed taxonomy.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return connector.NewError(connector.KindConnection, "", err)
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "NOAUTH"), strings.HasPrefix(msg, "WRONGPASS"):
		return connector.NewError(connector.KindAuth, msg, err)
	case strings.HasPrefix(msg, "NOPERM"):
		return connector.NewError(connector.KindPermission, msg, err)
	case strings.HasPrefix(msg, "ERR unknown command"):
		return connector.NewError(connector.KindNotSupported, msg, err)
	case strings.HasPrefix(msg, "LOADING"), strings.HasPrefix(msg, "BUSY"):
		return connector.NewError(connector.KindUnavailable, msg, err)
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
