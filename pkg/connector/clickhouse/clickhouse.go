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
// Package clickhouse provides the ClickHouse connector.
package clickhouse

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Config holds configuration for the ClickHouse connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for ClickHouse.
type Connector struct {
	db     *sql.DB
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

	addrs := make([]string, 0, len(cfg.Target.Endpoints))
	for _, ep := range cfg.Target.Endpoints {
		if ep.Port == 0 {
			ep.Port = 9000
		}
		addrs = append(addrs, ep.String())
	}

	opts := &ch.Options{
		Addr: addrs,
		Auth: ch.Auth{
			Database: cfg.Target.Database,
			Username: cfg.Target.Credentials.Username,
			Password: cfg.Target.Credentials.Password,
		},
		DialTimeout: cfg.ConnectTimeout,
	}
	if cfg.Target.Credentials.TLSEnabled {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	db := ch.OpenDB(opts)
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, classify(err)
	}

	cfg.Logger.Info("clickhouse connector opened", zap.Strings("addrs", addrs))
	return &Connector{db: db, cfg: cfg, logger: cfg.Logger}, nil
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "clickhouse" }

// Describe gathers server version and cluster membership from system
// tables.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return nil, classify(err)
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

	var nodes int
	if err := c.db.QueryRowContext(ctx,
		"SELECT count(DISTINCT host_name) FROM system.clusters").Scan(&nodes); err == nil && nodes > 0 {
		meta.NodeCount = nodes
	}

	var hasReplicated int
	if err := c.db.QueryRowContext(ctx,
		"SELECT count() FROM system.replicas").Scan(&hasReplicated); err == nil {
		meta.Features["has_replicated_tables"] = hasReplicated > 0
	}
	return meta, nil
}

// Query executes SQL text.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.SQL == "" {
		return nil, connector.ErrNotSupported("clickhouse connector accepts SQL queries only")
	}
	res, err := sqlutil.RunQuery(ctx, c.db, q.SQL)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// Ping checks session liveness.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{SupportsSQL: true}
}

// Close releases the session.
func (c *Connector) Close() error {
	c.logger.Debug("closing clickhouse connector")
	return c.db.Close()
}

// classify maps ClickHouse server exception codes onto the closed taxonomy
// before falling back to the generic classifier.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	var exc *ch.Exception
	if errors.As(err, &exc) {
		switch exc.Code {
		case 516: // authentication failed
			return connector.NewError(connector.KindAuth, exc.Message, err)
		case 497: // access denied
			return connector.NewError(connector.KindPermission, exc.Message, err)
		case 62: // syntax error
			return connector.NewError(connector.KindSyntax, exc.Message, err)
		case 159, 160: // timeout exceeded, too slow
			return connector.NewError(connector.KindTimeout, exc.Message, err)
		case 202, 203: // too many simultaneous queries/connections
			return connector.NewError(connector.KindUnavailable, exc.Message, err)
		}
		return connector.NewError(connector.KindOther, exc.Message, err)
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
