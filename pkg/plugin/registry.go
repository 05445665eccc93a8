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
package plugin

import (
	"fmt"
	"sort"

	"github.com/teradata-labs/pulse/pkg/rules"
	"github.com/teradata-labs/pulse/pkg/target"
)

// ErrUnknownPlugin and ErrUnknownReport are the two resolver failure
// modes. They wrap the requested name.
type ErrUnknownPlugin struct{ Technology target.Technology }

func (e ErrUnknownPlugin) Error() string {
	return fmt.Sprintf("unknown_plugin: no plugin for technology %q", e.Technology)
}

type ErrUnknownReport struct {
	Plugin string
	Report string
}

func (e ErrUnknownReport) Error() string {
	return fmt.Sprintf("unknown_report: plugin %s has no report %q", e.Plugin, e.Report)
}

// Resolution is the output of Resolve: the ordered actions of the
// requested report plus the plugin's compiled rule set.
type Resolution struct {
	Plugin  *Plugin
	Report  *Report
	Actions []Action
	RuleSet *rules.Set
}

// Registry holds the static plugin list assembled at program start.
// Tests substitute their own registries directly.
type Registry struct {
	byTech map[target.Technology]*Plugin
	sets   map[target.Technology]*rules.Set
}

// NewRegistry validates and registers the given plugins. Rule sets are
// parsed and compiled here so malformed rule files fail at startup, not
// mid-run.
func NewRegistry(plugins ...*Plugin) (*Registry, error) {
	r := &Registry{
		byTech: map[target.Technology]*Plugin{},
		sets:   map[target.Technology]*rules.Set{},
	}
	for _, p := range plugins {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byTech[p.Technology]; dup {
			return nil, fmt.Errorf("duplicate plugin for technology %q", p.Technology)
		}
		set, err := p.parseRules()
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.ID, err)
		}
		r.byTech[p.Technology] = p
		r.sets[p.Technology] = set
	}
	return r, nil
}

// Resolve translates (technology, report_name) into an ordered action
// list and a rule set. Guards are carried on the actions; the runner
// evaluates them against the settings snapshot at execution time.
func (r *Registry) Resolve(tech target.Technology, report string) (*Resolution, error) {
	p, ok := r.byTech[tech]
	if !ok {
		return nil, ErrUnknownPlugin{Technology: tech}
	}
	rep, ok := p.Reports[report]
	if !ok {
		return nil, ErrUnknownReport{Plugin: p.ID, Report: report}
	}
	return &Resolution{
		Plugin:  p,
		Report:  rep,
		Actions: rep.Actions,
		RuleSet: r.sets[tech],
	}, nil
}

// Plugin returns the plugin for a technology, or nil.
func (r *Registry) Plugin(tech target.Technology) *Plugin {
	return r.byTech[tech]
}

// Plugins returns all registered plugins sorted by id.
func (r *Registry) Plugins() []*Plugin {
	out := make([]*Plugin, 0, len(r.byTech))
	for _, p := range r.byTech {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReportNames returns the sorted report names of a plugin.
func (p *Plugin) ReportNames() []string {
	names := make([]string, 0, len(p.Reports))
	for name := range p.Reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
