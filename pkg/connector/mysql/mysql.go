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
// Package mysql provides the MySQL connector.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Config holds configuration for the MySQL connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for MySQL.
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

	mc := gomysql.NewConfig()
	ep := cfg.Target.Primary()
	port := ep.Port
	if port == 0 {
		port = 3306
	}
	mc.Net = "tcp"
	mc.Addr = (&target.Endpoint{Host: ep.Host, Port: port}).String()
	mc.User = cfg.Target.Credentials.Username
	mc.Passwd = cfg.Target.Credentials.Password
	mc.DBName = cfg.Target.Database
	mc.Timeout = cfg.ConnectTimeout
	if cfg.Target.Credentials.TLSEnabled {
		mc.TLSConfig = "true"
	}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, classify(err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, classify(err)
	}

	cfg.Logger.Info("mysql connector opened",
		zap.String("host", ep.Host),
		zap.String("database", cfg.Target.Database))

	return &Connector{db: db, cfg: cfg, logger: cfg.Logger}, nil
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "mysql" }

// Describe gathers server version and feature flags. Aurora is detected
// via the aurora_version variable.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
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

	var name, auroraVersion string
	if err := c.db.QueryRowContext(ctx,
		"SHOW VARIABLES LIKE 'aurora_version'").Scan(&name, &auroraVersion); err == nil && auroraVersion != "" {
		meta.Features["is_aurora"] = true
	}

	var replicas int
	if err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM performance_schema.replication_connection_status").Scan(&replicas); err == nil {
		meta.NodeCount = 1 + replicas
	}

	var perfSchema string
	if err := c.db.QueryRowContext(ctx, "SELECT @@performance_schema").Scan(&perfSchema); err == nil {
		meta.Features["has_performance_schema"] = perfSchema == "1"
	}
	return meta, nil
}

// Query executes SQL text.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.SQL == "" {
		return nil, connector.ErrNotSupported("mysql connector accepts SQL queries only")
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
	c.logger.Debug("closing mysql connector")
	return c.db.Close()
}

// classify maps MySQL error numbers onto the closed taxonomy before
// falling back to the generic classifier.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1142, 1143, 1227: // access denied to db/table/column, privilege
			return connector.NewError(connector.KindPermission, myErr.Message, err)
		case 1045: // access denied for user
			return connector.NewError(connector.KindAuth, myErr.Message, err)
		case 1064: // syntax error
			return connector.NewError(connector.KindSyntax, myErr.Message, err)
		case 1040, 1203: // too many connections
			return connector.NewError(connector.KindUnavailable, myErr.Message, err)
		case 1317, 3024: // query interrupted, max execution time exceeded
			return connector.NewError(connector.KindTimeout, myErr.Message, err)
		}
	}
	if errors.Is(err, gomysql.ErrInvalidConn) || strings.Contains(err.Error(), "bad connection") {
		return connector.NewError(connector.KindConnection, "", err)
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
