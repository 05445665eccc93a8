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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teradata-labs/pulse/pkg/target"
)

// customReport is one entry of a custom report definitions file. The
// technology names the plugin the report merges into.
type customReport struct {
	Technology string `yaml:"technology"`
	Report     `yaml:",inline"`
}

// reportFile is the on-disk shape of a custom report definitions file.
type reportFile struct {
	Reports []customReport `yaml:"reports"`
}

// LoadReports parses custom report definitions from YAML and merges them
// into the registered plugins, overriding defaults with the same name.
// Actions still validate against each plugin's check registry, so a
// custom report can only sequence checks the plugin ships.
func (r *Registry) LoadReports(data []byte) error {
	var file reportFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing report definitions: %w", err)
	}
	for _, rep := range file.Reports {
		p, ok := r.byTech[target.Technology(rep.Technology)]
		if !ok {
			return ErrUnknownPlugin{Technology: target.Technology(rep.Technology)}
		}
		if rep.Name == "" {
			return fmt.Errorf("report definition for %s without a name", rep.Technology)
		}
		if p.Reports == nil {
			p.Reports = map[string]*Report{}
		}
		def := rep.Report
		p.Reports[rep.Name] = &def
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadReportsFile is LoadReports over a file path.
func (r *Registry) LoadReportsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading report definitions: %w", err)
	}
	return r.LoadReports(data)
}
