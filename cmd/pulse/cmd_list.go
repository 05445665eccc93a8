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
	"sort"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/pulse/pkg/plugins"
)

var listPluginsCmd = &cobra.Command{
	Use:   "list-plugins",
	Short: "List registered technology plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := plugins.Default()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitInternal)
		}
		for _, p := range registry.Plugins() {
			checks := make([]string, 0, len(p.Checks))
			for id := range p.Checks {
				checks = append(checks, id)
			}
			sort.Strings(checks)
			fmt.Printf("%-12s %d checks: %v\n", p.ID, len(checks), checks)
		}
		return nil
	},
}

var listReportsCmd = &cobra.Command{
	Use:   "list-reports",
	Short: "List report definitions per plugin, custom definitions included",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, code := buildRegistry()
		if code != exitOK {
			os.Exit(code)
		}
		for _, p := range registry.Plugins() {
			for _, name := range p.ReportNames() {
				rep := p.Reports[name]
				fmt.Printf("%-12s %-12s %d actions  %s\n",
					p.ID, name, len(rep.Actions), rep.Description)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listPluginsCmd)
	rootCmd.AddCommand(listReportsCmd)
}
