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
// Package target defines the immutable per-run description of a database
// target and the settings snapshot handed to checks.
package target

import (
	"fmt"
)

// Technology identifies the database technology of a target.
type Technology string

const (
	TechPostgres   Technology = "postgres"
	TechMySQL      Technology = "mysql"
	TechCassandra  Technology = "cassandra"
	TechClickHouse Technology = "clickhouse"
	TechOpenSearch Technology = "opensearch"
	TechKafka      Technology = "kafka"
	TechMongoDB    Technology = "mongodb"
	TechValkey     Technology = "valkey"
)

// Technologies lists every supported technology tag.
var Technologies = []Technology{
	TechPostgres, TechMySQL, TechCassandra, TechClickHouse,
	TechOpenSearch, TechKafka, TechMongoDB, TechValkey,
}

// Valid reports whether t is a member of the closed technology set.
func (t Technology) Valid() bool {
	for _, known := range Technologies {
		if t == known {
			return true
		}
	}
	return false
}

// Endpoint is one network coordinate of a target. Clustered technologies
// (Cassandra, Kafka, OpenSearch) may carry several.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	if e.Port == 0 {
		return e.Host
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Credentials references authentication material. Secrets are resolved by
// the caller before the run starts; the engine never reads key stores.
type Credentials struct {
	Username string
	Password string
	// TLSEnabled requests an encrypted client connection where the driver
	// supports it.
	TLSEnabled bool
	// APIKey is used by REST-style backends (OpenSearch) instead of
	// username/password when set.
	APIKey string
}

// SSHHost describes one host of the optional SSH topology.
type SSHHost struct {
	Host     string
	User     string
	Port     int
	Password string
	// KeyPEM holds a private key in PEM form. Takes precedence over
	// Password when both are set.
	KeyPEM []byte
}

// ProviderHints carries optional cloud/managed-service metadata.
type ProviderHints struct {
	CloudRegion string
	Managed     bool
}

// Target is the immutable description of one health-check target.
// Constructed from configuration at run start, discarded at run end.
type Target struct {
	Technology  Technology
	Endpoints   []Endpoint
	Credentials Credentials
	CompanyID   string
	Database    string
	ClusterName string
	SSH         []SSHHost
	Hints       ProviderHints
}

// Validate checks the target for configuration errors. It is called before
// any connector is opened; failures here abort the run with a config error.
func (t *Target) Validate() error {
	if !t.Technology.Valid() {
		return fmt.Errorf("unknown technology %q", t.Technology)
	}
	if len(t.Endpoints) == 0 {
		return fmt.Errorf("target %s: at least one endpoint is required", t.Technology)
	}
	for _, e := range t.Endpoints {
		if e.Host == "" {
			return fmt.Errorf("target %s: endpoint with empty host", t.Technology)
		}
	}
	if t.CompanyID == "" {
		return fmt.Errorf("target %s: company identifier is required", t.Technology)
	}
	return nil
}

// Primary returns the first endpoint. Every validated target has one.
func (t *Target) Primary() Endpoint {
	return t.Endpoints[0]
}

// HasSSH reports whether an SSH topology is configured.
func (t *Target) HasSSH() bool {
	return len(t.SSH) > 0
}
