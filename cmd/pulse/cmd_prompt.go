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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/internal/log"
)

var promptShowAudit bool

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Run checks and print the assembled LLM prompt without calling a model",
	RunE: func(cmd *cobra.Command, args []string) error {
		code := promptMain(cmd.Context())
		os.Exit(code)
		return nil
	},
}

func init() {
	promptCmd.Flags().BoolVar(&promptShowAudit, "audit", false, "also print the prompt audit record as JSON")
	rootCmd.AddCommand(promptCmd)
}

func promptMain(parent context.Context) int {
	logger := log.Logger()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, code := buildJobs(true)
	if code != exitOK {
		return code
	}

	registry, code := buildRegistry()
	if code != exitOK {
		return code
	}
	orch, err := buildOrchestrator(registry, nil, nil, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}

	results, err := orch.RunAll(ctx, jobs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}

	for _, r := range results {
		if r.Err != nil {
			logger.Error("target failed",
				zap.String("host", r.Target.Primary().Host),
				zap.Error(r.Err))
			continue
		}
		fmt.Println(r.Prompt)
		if promptShowAudit && r.Audit != nil {
			audit, err := json.MarshalIndent(r.Audit, "", "  ")
			if err == nil {
				fmt.Fprintln(os.Stderr, string(audit))
			}
		}
	}
	return exitCode(results)
}
