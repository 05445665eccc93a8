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
// Package postgres provides the PostgreSQL connector.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Config holds configuration for the PostgreSQL connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for PostgreSQL.
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

	db, err := sql.Open("postgres", dsn(cfg))
	if err != nil {
		return nil, classify(err)
	}
	// One session per run; checks are serialized by the runner.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, classify(err)
	}

	cfg.Logger.Info("postgres connector opened",
		zap.String("host", cfg.Target.Primary().Host),
		zap.String("database", cfg.Target.Database))

	return &Connector{db: db, cfg: cfg, logger: cfg.Logger}, nil
}

func dsn(cfg Config) string {
	ep := cfg.Target.Primary()
	port := ep.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if cfg.Target.Credentials.TLSEnabled {
		sslmode = "require"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Target.Credentials.Username, cfg.Target.Credentials.Password),
		Host:   fmt.Sprintf("%s:%d", ep.Host, port),
		Path:   "/" + cfg.Target.Database,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	q.Set("connect_timeout", fmt.Sprintf("%d", int(cfg.ConnectTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "postgres" }

// Describe gathers server version, replica count, and feature flags.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
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

	var replicas int
	if err := c.db.QueryRowContext(ctx,
		"SELECT count(*) FROM pg_stat_replication").Scan(&replicas); err == nil {
		meta.NodeCount = 1 + replicas
	}

	var hasStatStatements bool
	if err := c.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pg_stat_statements')",
	).Scan(&hasStatStatements); err == nil {
		meta.Features["has_pg_stat_statements"] = hasStatStatements
	}

	var inRecovery bool
	if err := c.db.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err == nil {
		meta.Features["is_replica"] = inRecovery
	}

	if c.cfg.Target.Hints.Managed {
		meta.Features["managed_service"] = true
	}
	return meta, nil
}

// Query executes SQL text. Structured operations and raw commands are not
// supported by this backend.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.SQL == "" {
		return nil, connector.ErrNotSupported("postgres connector accepts SQL queries only")
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
	c.logger.Debug("closing postgres connector")
	return c.db.Close()
}

// classify maps pq SQLSTATE classes onto the closed taxonomy before
// falling back to the generic classifier.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case strings.HasPrefix(code, "28"): // invalid_authorization_specification
			return connector.NewError(connector.KindAuth, pqErr.Message, err)
		case code == "42501": // insufficient_privilege
			return connector.NewError(connector.KindPermission, pqErr.Message, err)
		case strings.HasPrefix(code, "42"): // syntax_error_or_access_rule_violation
			return connector.NewError(connector.KindSyntax, pqErr.Message, err)
		case strings.HasPrefix(code, "08"): // connection_exception
			return connector.NewError(connector.KindConnection, pqErr.Message, err)
		case strings.HasPrefix(code, "53"): // insufficient_resources
			return connector.NewError(connector.KindUnavailable, pqErr.Message, err)
		case code == "57014": // query_canceled
			return connector.NewError(connector.KindTimeout, pqErr.Message, err)
		}
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
