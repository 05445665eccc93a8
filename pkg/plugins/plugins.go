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
// Package plugins assembles the built-in technology plugins into one
// registry. Registration is static; tests build their own registries
// from hand-made plugins instead.
package plugins

import (
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins/cassandra"
	"github.com/teradata-labs/pulse/pkg/plugins/clickhouse"
	"github.com/teradata-labs/pulse/pkg/plugins/kafka"
	"github.com/teradata-labs/pulse/pkg/plugins/mongodb"
	"github.com/teradata-labs/pulse/pkg/plugins/mysql"
	"github.com/teradata-labs/pulse/pkg/plugins/opensearch"
	"github.com/teradata-labs/pulse/pkg/plugins/postgres"
	"github.com/teradata-labs/pulse/pkg/plugins/valkey"
)

// Default returns the registry with every built-in plugin registered.
// Rule sets are parsed and compiled here; a malformed embedded rule
// file fails program start.
func Default() (*plugin.Registry, error) {
	return plugin.NewRegistry(
		cassandra.New(),
		clickhouse.New(),
		kafka.New(),
		mongodb.New(),
		mysql.New(),
		opensearch.New(),
		postgres.New(),
		valkey.New(),
	)
}
