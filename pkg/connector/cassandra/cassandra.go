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
// Package cassandra provides the Cassandra connector (CQL via gocql).
package cassandra

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Config holds configuration for the Cassandra connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for Cassandra.
type Connector struct {
	session *gocql.Session
	cfg     Config
	logger  *zap.Logger
}

// Open establishes the CQL session.
func Open(ctx context.Context, cfg Config) (*Connector, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.Target == nil {
		return nil, connector.NewError(connector.KindOther, "target is required", nil)
	}

	hosts := make([]string, 0, len(cfg.Target.Endpoints))
	for _, ep := range cfg.Target.Endpoints {
		hosts = append(hosts, ep.Host)
	}

	cluster := gocql.NewCluster(hosts...)
	if p := cfg.Target.Primary().Port; p != 0 {
		cluster.Port = p
	}
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.QueryTimeout
	cluster.Consistency = gocql.One
	if cfg.Target.Credentials.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Target.Credentials.Username,
			Password: cfg.Target.Credentials.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, classify(err)
	}

	cfg.Logger.Info("cassandra connector opened", zap.Strings("hosts", hosts))
	return &Connector{session: session, cfg: cfg, logger: cfg.Logger}, nil
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "cassandra" }

// Describe reads release version and cluster membership from the system
// tables.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	var version, clusterName string
	if err := c.session.Query(
		"SELECT release_version, cluster_name FROM system.local",
	).WithContext(ctx).Scan(&version, &clusterName); err != nil {
		return nil, classify(err)
	}
	major, minor := sqlutil.ParseVersion(version)

	meta := &connector.Metadata{
		Version:     version,
		Major:       major,
		Minor:       minor,
		Environment: "unknown",
		NodeCount:   1,
		ClusterName: clusterName,
		Features:    map[string]bool{},
	}

	iter := c.session.Query("SELECT peer FROM system.peers").WithContext(ctx).Iter()
	peers := 0
	var peer string
	for iter.Scan(&peer) {
		peers++
	}
	if err := iter.Close(); err == nil {
		meta.NodeCount = 1 + peers
	}
	return meta, nil
}

// Query executes CQL text via Q.SQL.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.SQL == "" {
		return nil, connector.ErrNotSupported("cassandra connector accepts CQL queries only")
	}

	iter := c.session.Query(q.SQL).WithContext(ctx).Iter()

	cols := iter.Columns()
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}

	result := &connector.Result{Columns: names}
	for {
		row := make(map[string]interface{}, len(cols))
		if !iter.MapScan(row) {
			break
		}
		out := make([]interface{}, len(names))
		for i, name := range names {
			out[i] = sqlutil.NormalizeValue(row[name])
		}
		result.Rows = append(result.Rows, out)
	}
	if err := iter.Close(); err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// Ping checks session liveness with a cheap system.local read.
func (c *Connector) Ping(ctx context.Context) error {
	var key string
	if err := c.session.Query("SELECT key FROM system.local").WithContext(ctx).Scan(&key); err != nil {
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
	c.logger.Debug("closing cassandra connector")
	c.session.Close()
	return nil
}

// classify maps gocql errors onto the closed taxonomy.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case gocql.ErrCodeCredentials, gocql.ErrCodeUnauthorized:
			return connector.NewError(connector.KindAuth, reqErr.Message(), err)
		case gocql.ErrCodeSyntax:
			return connector.NewError(connector.KindSyntax, reqErr.Message(), err)
		case gocql.ErrCodeUnavailable, gocql.ErrCodeOverloaded:
			return connector.NewError(connector.KindUnavailable, reqErr.Message(), err)
		case gocql.ErrCodeReadTimeout, gocql.ErrCodeWriteTimeout:
			return connector.NewError(connector.KindTimeout, reqErr.Message(), err)
		}
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrSessionClosed) {
		return connector.NewError(connector.KindConnection, "", err)
	}
	if errors.Is(err, gocql.ErrTimeoutNoResponse) || errors.Is(err, gocql.ErrConnectionClosed) {
		return connector.NewError(connector.KindConnection, "", err)
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
