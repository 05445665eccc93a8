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
// Package factory opens the right connector for a target's technology.
package factory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/cassandra"
	"github.com/teradata-labs/pulse/pkg/connector/clickhouse"
	"github.com/teradata-labs/pulse/pkg/connector/kafka"
	"github.com/teradata-labs/pulse/pkg/connector/mongodb"
	"github.com/teradata-labs/pulse/pkg/connector/mysql"
	"github.com/teradata-labs/pulse/pkg/connector/opensearch"
	"github.com/teradata-labs/pulse/pkg/connector/postgres"
	"github.com/teradata-labs/pulse/pkg/connector/valkey"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Options tune connection establishment for all drivers.
type Options struct {
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	Logger         *zap.Logger
}

// Open dials the connector for the target's technology. Unknown
// technologies are a not_supported error so the run records a finding
// instead of crashing.
func Open(ctx context.Context, t *target.Target, opts Options) (connector.Connector, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch t.Technology {
	case target.TechPostgres:
		return postgres.Open(ctx, postgres.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	case target.TechMySQL:
		return mysql.Open(ctx, mysql.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	case target.TechCassandra:
		return cassandra.Open(ctx, cassandra.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, QueryTimeout: opts.QueryTimeout, Logger: opts.Logger})
	case target.TechClickHouse:
		return clickhouse.Open(ctx, clickhouse.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	case target.TechOpenSearch:
		return opensearch.Open(ctx, opensearch.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	case target.TechKafka:
		return kafka.Open(ctx, kafka.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	case target.TechMongoDB:
		return mongodb.Open(ctx, mongodb.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	case target.TechValkey:
		return valkey.Open(ctx, valkey.Config{Target: t, ConnectTimeout: opts.ConnectTimeout, Logger: opts.Logger})
	}
	return nil, connector.ErrNotSupported(fmt.Sprintf("technology %q", t.Technology))
}

// OpenWithRetry wraps Open with the shared reconnect policy.
func OpenWithRetry(ctx context.Context, t *target.Target, opts Options) (connector.Connector, error) {
	var conn connector.Connector
	err := connector.Reconnect(ctx, opts.Logger, func(ctx context.Context) error {
		var err error
		conn, err = Open(ctx, t, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
