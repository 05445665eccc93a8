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
package main

import (
	"fmt"
	"os"

	"github.com/teradata-labs/pulse/pkg/target"
)

// Config holds all configuration for the pulse CLI.
// Priority: CLI flags > config file > env vars > defaults.
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging"`
	Engine  EngineConfig   `mapstructure:"engine"`
	LLM     LLMConfig      `mapstructure:"llm"`
	Trend   TrendConfig    `mapstructure:"trend"`
	Targets []TargetConfig `mapstructure:"targets"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// EngineConfig controls the orchestrator and prompt assembly.
type EngineConfig struct {
	Workers      int    `mapstructure:"workers"`
	Report       string `mapstructure:"report"`
	PromptBudget int    `mapstructure:"prompt_budget"`
	Tokenizer    string `mapstructure:"tokenizer"`

	// ReportFile points at a YAML file of custom report definitions
	// merged over the plugins' defaults.
	ReportFile string `mapstructure:"report_file"`
}

// LLMConfig selects and configures the assessment provider.
type LLMConfig struct {
	// Provider is "anthropic", "openai", or "" to disable the LLM stage.
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Endpoint string `mapstructure:"endpoint"`
}

// TrendConfig selects the trend store backend.
type TrendConfig struct {
	// Backend is "postgres", "sqlite", or "" to disable persistence.
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
	Path    string `mapstructure:"path"`
	Migrate bool   `mapstructure:"migrate"`

	SpoolDir string `mapstructure:"spool_dir"`

	// EncryptionKeyFile holds a 32-byte AES key; empty disables
	// findings-blob encryption.
	EncryptionKeyFile string `mapstructure:"encryption_key_file"`
}

// TargetConfig is one target entry in the config file.
type TargetConfig struct {
	Technology  string `mapstructure:"technology"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	APIKey      string `mapstructure:"api_key"`
	TLS         bool   `mapstructure:"tls"`
	Company     string `mapstructure:"company"`
	Database    string `mapstructure:"database"`
	ClusterName string `mapstructure:"cluster_name"`

	// Report overrides engine.report for this target.
	Report string `mapstructure:"report"`

	// Settings are validated against the plugin's schema at run start.
	Settings map[string]interface{} `mapstructure:"settings"`

	SSH []SSHConfig `mapstructure:"ssh"`

	CloudRegion string `mapstructure:"cloud_region"`
	Managed     bool   `mapstructure:"managed"`
}

// SSHConfig is one host of a target's SSH topology.
type SSHConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	KeyFile  string `mapstructure:"key_file"`
}

// toTarget converts a config entry into an engine target.
func (tc *TargetConfig) toTarget() (*target.Target, error) {
	t := &target.Target{
		Technology:  target.Technology(tc.Technology),
		Endpoints:   []target.Endpoint{{Host: tc.Host, Port: tc.Port}},
		CompanyID:   tc.Company,
		Database:    tc.Database,
		ClusterName: tc.ClusterName,
		Credentials: target.Credentials{
			Username:   tc.Username,
			Password:   tc.Password,
			APIKey:     tc.APIKey,
			TLSEnabled: tc.TLS,
		},
		Hints: target.ProviderHints{
			CloudRegion: tc.CloudRegion,
			Managed:     tc.Managed,
		},
	}
	for _, s := range tc.SSH {
		host := target.SSHHost{
			Host:     s.Host,
			User:     s.User,
			Port:     s.Port,
			Password: s.Password,
		}
		if s.KeyFile != "" {
			pem, err := os.ReadFile(s.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("reading ssh key %s: %w", s.KeyFile, err)
			}
			host.KeyPEM = pem
		}
		t.SSH = append(t.SSH, host)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
