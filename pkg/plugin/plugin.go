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
// Package plugin defines technology plugins and the report-config
// resolver. Plugins register statically at program start; there is no
// runtime discovery. A plugin carries its check registry, its default
// report definitions, its rule set, and any extra settings its checks
// read.
package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/rules"
	"github.com/teradata-labs/pulse/pkg/target"
)

// CheckContext is what a check receives: an exclusive connector session,
// an immutable settings snapshot, and the target metadata gathered at
// open time. Shell is nil when the target has no SSH topology.
type CheckContext struct {
	Connector connector.Connector
	Shell     connector.ShellRunner
	Settings  *target.Settings
	Metadata  *connector.Metadata
	Logger    *zap.Logger
}

// CheckFunc is one registered check. It must return a Finding even on
// failure; a returned error is wrapped into a status=error Finding by
// the runner.
type CheckFunc func(ctx context.Context, cc *CheckContext) (*finding.Finding, error)

// ActionKind enumerates report actions.
type ActionKind string

const (
	ActionRunCheck   ActionKind = "run_check"
	ActionStaticText ActionKind = "include_static_text"
	ActionHeader     ActionKind = "header"
)

// Guard is an equality predicate over one named setting. A guard whose
// key is unknown in the settings snapshot evaluates to false and the
// action is skipped, not failed.
type Guard struct {
	Setting string      `yaml:"setting"`
	Equals  interface{} `yaml:"equals"`
}

// Allows reports whether the guarded action should run.
func (g *Guard) Allows(s *target.Settings) bool {
	if g == nil {
		return true
	}
	if s == nil || !s.Has(g.Setting) {
		return false
	}
	return fmt.Sprintf("%v", s.Get(g.Setting)) == fmt.Sprintf("%v", g.Equals)
}

// Action is one step of a report definition. Name is the check id for
// run_check, the static text key for include_static_text, or the header
// text itself.
type Action struct {
	Kind        ActionKind `yaml:"kind"`
	Name        string     `yaml:"name"`
	Guard       *Guard     `yaml:"guard,omitempty"`
	TimeoutSecs int        `yaml:"timeout_secs,omitempty"`
}

// Report is a declarative ordered action list.
type Report struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Actions     []Action `yaml:"actions"`
}

// Plugin bundles everything one technology contributes to the engine.
type Plugin struct {
	ID         string
	Technology target.Technology

	// Checks maps check_id to implementation.
	Checks map[string]CheckFunc

	// StaticTexts are report fragments referenced by include_static_text.
	StaticTexts map[string]string

	// Reports are the default report definitions, keyed by name.
	Reports map[string]*Report

	// RuleSetJSON is the embedded rule-set file, parsed at registration.
	RuleSetJSON []byte

	// Settings declares plugin-specific setting keys beyond the base
	// schema.
	Settings target.Schema
}

// Validate checks internal consistency: every run_check action must
// reference a registered check.
func (p *Plugin) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plugin has no id")
	}
	if !p.Technology.Valid() {
		return fmt.Errorf("plugin %s: unknown technology %q", p.ID, p.Technology)
	}
	for name, rep := range p.Reports {
		for i, a := range rep.Actions {
			switch a.Kind {
			case ActionRunCheck:
				if _, ok := p.Checks[a.Name]; !ok {
					return fmt.Errorf("plugin %s report %s action %d: unknown check %q",
						p.ID, name, i, a.Name)
				}
			case ActionStaticText:
				if _, ok := p.StaticTexts[a.Name]; !ok {
					return fmt.Errorf("plugin %s report %s action %d: unknown static text %q",
						p.ID, name, i, a.Name)
				}
			case ActionHeader:
			default:
				return fmt.Errorf("plugin %s report %s action %d: unknown kind %q",
					p.ID, name, i, a.Kind)
			}
		}
	}
	return nil
}

// Schema returns the full settings schema for the plugin: base plus
// plugin-specific keys.
func (p *Plugin) Schema() target.Schema {
	return target.BaseSchema.Merge(p.Settings)
}

// ruleSet is parsed lazily once by the registry; see Registry.register.
func (p *Plugin) parseRules() (*rules.Set, error) {
	if len(p.RuleSetJSON) == 0 {
		return rules.Parse([]byte("{}"))
	}
	return rules.Parse(p.RuleSetJSON)
}
