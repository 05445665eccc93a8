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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/internal/log"
	"github.com/teradata-labs/pulse/pkg/llm"
	"github.com/teradata-labs/pulse/pkg/llm/anthropic"
	"github.com/teradata-labs/pulse/pkg/llm/openai"
	"github.com/teradata-labs/pulse/pkg/orchestrator"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/plugins"
	"github.com/teradata-labs/pulse/pkg/prompt"
	"github.com/teradata-labs/pulse/pkg/trend"
	trendpg "github.com/teradata-labs/pulse/pkg/trend/postgres"
	trendsqlite "github.com/teradata-labs/pulse/pkg/trend/sqlite"
)

var (
	runSchedule  string
	runOutputDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run health checks against every configured target",
	RunE: func(cmd *cobra.Command, args []string) error {
		code := runMain(cmd.Context())
		os.Exit(code)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runSchedule, "schedule", "", "cron expression; re-run the target set on this schedule")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "write per-target reports to this directory instead of stdout")
	rootCmd.AddCommand(runCmd)
}

func runMain(parent context.Context) int {
	logger := log.Logger()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, code := buildJobs(false)
	if code != exitOK {
		return code
	}

	var store trend.TrendStore
	var ingester *trend.Ingester
	switch config.Trend.Backend {
	case "":
	case "postgres":
		s, err := trendpg.Open(ctx, trendpg.Config{
			DSN:     config.Trend.DSN,
			Migrate: config.Trend.Migrate,
			Logger:  logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening trend store: %v\n", err)
			return exitConfig
		}
		store = s
	case "sqlite":
		s, err := trendsqlite.Open(ctx, trendsqlite.Config{
			Path:   config.Trend.Path,
			Logger: logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening trend store: %v\n", err)
			return exitConfig
		}
		store = s
	default:
		fmt.Fprintf(os.Stderr, "unknown trend backend %q\n", config.Trend.Backend)
		return exitConfig
	}
	if store != nil {
		defer func() { _ = store.Close() }()
		var keys trend.KeyProvider
		if config.Trend.EncryptionKeyFile != "" {
			raw, err := os.ReadFile(config.Trend.EncryptionKeyFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reading encryption key: %v\n", err)
				return exitConfig
			}
			keys = trend.StaticKey(raw)
		}
		ingester = trend.NewIngester(trend.Config{
			Store:    store,
			Keys:     keys,
			SpoolDir: config.Trend.SpoolDir,
			Logger:   logger,
		})
		if replayed, err := ingester.ReplaySpool(ctx); err != nil {
			logger.Warn("spool replay incomplete", zap.Error(err))
		} else if replayed > 0 {
			logger.Info("replayed spooled runs", zap.Int("count", replayed))
		}
	}

	provider, err := buildProvider()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}

	registry, code := buildRegistry()
	if code != exitOK {
		return code
	}
	orch, err := buildOrchestrator(registry, provider, ingester, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}

	if runSchedule != "" {
		sched, err := orch.NewSchedule(runSchedule, jobs)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitConfig
		}
		sched.OnResults = func(results []orchestrator.Result) {
			emitReports(results, logger)
		}
		_ = sched.Run(ctx)
		return exitOK
	}

	results, err := orch.RunAll(ctx, jobs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}
	emitReports(results, logger)
	return exitCode(results)
}

// exitCode maps per-target outcomes onto the process exit status. A
// target that erred mid-run but still persisted findings is partial,
// not failed.
func exitCode(results []orchestrator.Result) int {
	for _, r := range results {
		if r.ConfigErr {
			return exitConfig
		}
	}
	succeeded, partial, failed := orchestrator.Outcome(results)
	switch {
	case partial == 0 && failed == 0:
		return exitOK
	case succeeded == 0 && partial == 0:
		return exitTarget
	default:
		return exitPartial
	}
}

func emitReports(results []orchestrator.Result, logger *zap.Logger) {
	for i, r := range results {
		if r.Err != nil {
			logger.Error("target failed",
				zap.String("technology", string(r.Target.Technology)),
				zap.String("host", r.Target.Primary().Host),
				zap.Error(r.Err))
		}
		if r.Report == "" {
			continue
		}
		if runOutputDir == "" {
			fmt.Println(r.Report)
			continue
		}
		name := fmt.Sprintf("%s-%s-%d.txt", r.Target.Technology, r.Target.Primary().Host, i)
		path := filepath.Join(runOutputDir, name)
		if err := os.MkdirAll(runOutputDir, 0o755); err != nil {
			logger.Error("creating output dir", zap.Error(err))
			continue
		}
		if err := os.WriteFile(path, []byte(r.Report), 0o644); err != nil {
			logger.Error("writing report", zap.String("path", path), zap.Error(err))
		}
	}
}

// buildJobs converts configured targets into orchestrator jobs.
func buildJobs(promptOnly bool) ([]orchestrator.Job, int) {
	if len(config.Targets) == 0 {
		fmt.Fprintln(os.Stderr, "no targets configured")
		return nil, exitConfig
	}
	jobs := make([]orchestrator.Job, 0, len(config.Targets))
	for i := range config.Targets {
		tc := &config.Targets[i]
		t, err := tc.toTarget()
		if err != nil {
			fmt.Fprintf(os.Stderr, "target %d: %v\n", i, err)
			return nil, exitConfig
		}
		rep := tc.Report
		if rep == "" {
			rep = config.Engine.Report
		}
		jobs = append(jobs, orchestrator.Job{
			Target:     t,
			Report:     rep,
			Settings:   tc.Settings,
			PromptOnly: promptOnly,
		})
	}
	return jobs, exitOK
}

func buildProvider() (llm.Provider, error) {
	switch config.LLM.Provider {
	case "":
		return nil, nil
	case "anthropic":
		key := config.LLM.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("llm provider anthropic requires an api key")
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:   key,
			Model:    config.LLM.Model,
			Endpoint: config.LLM.Endpoint,
		}), nil
	case "openai":
		key := config.LLM.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("llm provider openai requires an api key")
		}
		return openai.NewClient(openai.Config{
			APIKey:   key,
			Model:    config.LLM.Model,
			Endpoint: config.LLM.Endpoint,
		}), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", config.LLM.Provider)
}

// buildRegistry assembles the plugin registry and merges any custom
// report definitions. A registry that fails to assemble is a bug; a bad
// report file is the operator's to fix.
func buildRegistry() (*plugin.Registry, int) {
	registry, err := plugins.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "building plugin registry: %v\n", err)
		return nil, exitInternal
	}
	if config.Engine.ReportFile != "" {
		if err := registry.LoadReportsFile(config.Engine.ReportFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil, exitConfig
		}
	}
	return registry, exitOK
}

func buildOrchestrator(registry *plugin.Registry, provider llm.Provider, ingester *trend.Ingester, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	var tokenizer prompt.Tokenizer
	if config.Engine.Tokenizer == "tiktoken" {
		tokenizer = prompt.NewTiktoken()
	}

	return orchestrator.New(orchestrator.Config{
		Registry: registry,
		Provider: provider,
		Ingester: ingester,
		Prompt: prompt.Config{
			Tokenizer: tokenizer,
			Budget:    config.Engine.PromptBudget,
		},
		Workers: config.Engine.Workers,
		Logger:  logger,
	})
}
