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
// Package mongodb provides the MongoDB connector. Queries are structured
// operation descriptors mapped to database commands; results come back as
// documents.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/sqlutil"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Operations accepted by Query.
const (
	OpServerStatus    = "server_status"
	OpDBStats         = "db_stats"
	OpReplStatus      = "repl_status"
	OpCollectionStats = "collection_stats"
	OpCurrentOp       = "current_op"
	OpBuildInfo       = "build_info"
)

// Config holds configuration for the MongoDB connector.
type Config struct {
	Target         *target.Target
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Connector implements connector.Connector for MongoDB.
type Connector struct {
	client *mongo.Client
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

	client, err := mongo.Connect(options.Client().
		ApplyURI(uri(cfg.Target)).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, classify(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify(err)
	}

	cfg.Logger.Info("mongodb connector opened",
		zap.String("host", cfg.Target.Primary().Host))
	return &Connector{client: client, cfg: cfg, logger: cfg.Logger}, nil
}

func uri(t *target.Target) string {
	hosts := ""
	for i, ep := range t.Endpoints {
		if i > 0 {
			hosts += ","
		}
		if ep.Port == 0 {
			ep.Port = 27017
		}
		hosts += ep.String()
	}
	u := "mongodb://"
	if t.Credentials.Username != "" {
		u += url.QueryEscape(t.Credentials.Username) + ":" + url.QueryEscape(t.Credentials.Password) + "@"
	}
	u += hosts + "/"
	if t.Credentials.TLSEnabled {
		u += "?tls=true"
	}
	return u
}

// Name returns the connector identifier.
func (c *Connector) Name() string { return "mongodb" }

// Describe gathers server version and replica-set membership.
func (c *Connector) Describe(ctx context.Context) (*connector.Metadata, error) {
	admin := c.client.Database("admin")

	var build bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&build); err != nil {
		return nil, classify(err)
	}
	version, _ := build["version"].(string)
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

	var repl bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}).Decode(&repl); err == nil {
		meta.Features["is_replica_set"] = true
		if set, ok := repl["set"].(string); ok && meta.ClusterName == "" {
			meta.ClusterName = set
		}
		if members, ok := repl["members"].(bson.A); ok {
			meta.NodeCount = len(members)
		}
	}
	return meta, nil
}

// Query executes a structured operation descriptor.
func (c *Connector) Query(ctx context.Context, q connector.Query) (*connector.Result, error) {
	if q.Operation == "" {
		return nil, connector.ErrNotSupported("mongodb connector accepts structured operations only")
	}

	db := c.client.Database("admin")
	var cmd bson.D
	switch q.Operation {
	case OpServerStatus:
		cmd = bson.D{{Key: "serverStatus", Value: 1}}
	case OpDBStats:
		name, _ := q.Params["database"].(string)
		if name == "" {
			name = "admin"
		}
		db = c.client.Database(name)
		cmd = bson.D{{Key: "dbStats", Value: 1}}
	case OpReplStatus:
		cmd = bson.D{{Key: "replSetGetStatus", Value: 1}}
	case OpCollectionStats:
		name, _ := q.Params["database"].(string)
		coll, _ := q.Params["collection"].(string)
		if name == "" || coll == "" {
			return nil, connector.NewError(connector.KindOther,
				"collection_stats requires database and collection params", nil)
		}
		db = c.client.Database(name)
		cmd = bson.D{{Key: "collStats", Value: coll}}
	case OpCurrentOp:
		cmd = bson.D{{Key: "currentOp", Value: 1}}
	case OpBuildInfo:
		cmd = bson.D{{Key: "buildInfo", Value: 1}}
	default:
		return nil, connector.ErrNotSupported(fmt.Sprintf("unknown operation %q", q.Operation))
	}

	var doc bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	return &connector.Result{Document: flatten(doc)}, nil
}

// flatten converts bson.M values into plain JSON-friendly shapes.
func flatten(doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = flattenValue(v)
	}
	return out
}

func flattenValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return flatten(val)
	case bson.A:
		arr := make([]interface{}, len(val))
		for i, item := range val {
			arr[i] = flattenValue(item)
		}
		return arr
	default:
		return v
	}
}

// Ping checks session liveness.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return classify(err)
	}
	return nil
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{
		SupportsOperations: []string{
			OpServerStatus, OpDBStats, OpReplStatus,
			OpCollectionStats, OpCurrentOp, OpBuildInfo,
		},
	}
}

// Close releases the session.
func (c *Connector) Close() error {
	c.logger.Debug("closing mongodb connector")
	return c.client.Disconnect(context.Background())
}

// classify maps mongo driver errors onto the closed taxonomy.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 18: // AuthenticationFailed
			return connector.NewError(connector.KindAuth, cmdErr.Message, err)
		case 13: // Unauthorized
			return connector.NewError(connector.KindPermission, cmdErr.Message, err)
		case 50: // MaxTimeMSExpired
			return connector.NewError(connector.KindTimeout, cmdErr.Message, err)
		case 59: // CommandNotFound
			return connector.NewError(connector.KindNotSupported, cmdErr.Message, err)
		}
		return connector.NewError(connector.KindOther, cmdErr.Message, err)
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return connector.NewError(connector.KindConnection, "", err)
	}
	if mongo.IsTimeout(err) {
		return connector.NewError(connector.KindTimeout, "", err)
	}
	if mongo.IsNetworkError(err) {
		return connector.NewError(connector.KindConnection, "", err)
	}
	return connector.Classify(err)
}

// Ensure Connector implements connector.Connector.
var _ connector.Connector = (*Connector)(nil)
