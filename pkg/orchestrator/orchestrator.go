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
// Package orchestrator drives the health-check pipeline for one or many
// targets. Each target runs its pipeline sequentially on one worker;
// targets run in parallel on a bounded pool. A single cancellation
// signal reaches every worker, and every target produces a result,
// successful or not.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/connector/factory"
	"github.com/teradata-labs/pulse/pkg/connector/sshexec"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/llm"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/prompt"
	"github.com/teradata-labs/pulse/pkg/report"
	"github.com/teradata-labs/pulse/pkg/rules"
	"github.com/teradata-labs/pulse/pkg/runner"
	"github.com/teradata-labs/pulse/pkg/target"
	"github.com/teradata-labs/pulse/pkg/trend"
)

// Defaults for pool size and per-target budget.
const (
	DefaultWorkers       = 4
	DefaultTargetTimeout = 10 * time.Minute
)

// Config wires an Orchestrator. Registry is required; Provider and
// Ingester are optional and disable the LLM and trend stages when nil.
type Config struct {
	Registry *plugin.Registry
	Provider llm.Provider
	Ingester *trend.Ingester

	// Opener dials the connector for a target. Defaults to the factory
	// with the shared reconnect policy; tests substitute scripted
	// connectors.
	Opener func(ctx context.Context, t *target.Target, opts factory.Options) (connector.Connector, error)

	// Prompt configures the assembler shared by all targets.
	Prompt prompt.Config

	Workers        int
	TargetTimeout  time.Duration
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration

	Logger *zap.Logger
}

// Job is one target plus its run parameters.
type Job struct {
	Target *target.Target

	// Report selects a report definition from the target's plugin.
	Report string

	// Settings are raw overrides validated against the plugin's schema.
	Settings map[string]interface{}

	// PromptOnly stops the pipeline after prompt assembly: no LLM call,
	// no report, no trend ingest.
	PromptOnly bool
}

// Result is the outcome for one target. Err is set when the pipeline
// could not complete; a partial run may still be attached.
type Result struct {
	Target *target.Target
	Run    *finding.Run
	Items  []runner.Item

	// Report is the rendered human-readable report.
	Report string

	// Prompt and Audit are filled for PromptOnly jobs and whenever the
	// LLM stage ran.
	Prompt string
	Audit  *prompt.Audit

	// ConfigErr marks failures before any connector was opened:
	// unknown plugin or report, bad settings.
	ConfigErr bool

	Err error
}

// Orchestrator runs pipelines. Safe for concurrent use; all mutable
// state is per-run.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger
}

// New builds an Orchestrator with defaults applied.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("orchestrator requires a plugin registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.TargetTimeout <= 0 {
		cfg.TargetTimeout = DefaultTargetTimeout
	}
	if cfg.Opener == nil {
		cfg.Opener = factory.OpenWithRetry
	}
	return &Orchestrator{cfg: cfg, logger: cfg.Logger}, nil
}

// RunAll executes every job on the bounded pool and returns one result
// per job, in job order. Per-target failures land in Result.Err; the
// returned error is reserved for orchestrator-level faults.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = o.RunOne(gctx, job)
			return nil
		})
	}
	// Workers never return errors; a failed target must not cancel its
	// siblings.
	_ = g.Wait()
	return results, nil
}

// Outcome tallies results for exit-status decisions. A target whose
// pipeline erred but still produced a run with findings counts as
// partial: its results were persisted and reported.
func Outcome(results []Result) (succeeded, partial, failed int) {
	for _, r := range results {
		switch {
		case r.Err == nil:
			succeeded++
		case !r.ConfigErr && r.Run != nil && r.Run.Findings != nil && r.Run.Findings.Len() > 0:
			partial++
		default:
			failed++
		}
	}
	return succeeded, partial, failed
}

// RunOne drives the full pipeline for a single target.
func (o *Orchestrator) RunOne(ctx context.Context, job Job) Result {
	res := Result{Target: job.Target}
	logger := o.logger.With(
		zap.String("technology", string(job.Target.Technology)),
		zap.String("host", job.Target.Primary().Host))

	if err := job.Target.Validate(); err != nil {
		res.ConfigErr = true
		res.Err = fmt.Errorf("invalid target: %w", err)
		return res
	}

	reportName := job.Report
	if reportName == "" {
		reportName = "standard"
	}
	resolution, err := o.cfg.Registry.Resolve(job.Target.Technology, reportName)
	if err != nil {
		res.ConfigErr = true
		res.Err = err
		return res
	}

	settings, err := target.NewSettings(resolution.Plugin.Schema(), job.Settings)
	if err != nil {
		res.ConfigErr = true
		res.Err = fmt.Errorf("invalid settings: %w", err)
		return res
	}

	timeout := o.cfg.TargetTimeout
	if secs := settings.Int("target_timeout_secs", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startedAt := time.Now().UTC()
	runID := uuid.NewString()
	logger = logger.With(zap.String("run", runID))
	logger.Info("run started", zap.String("report", reportName))

	conn, err := o.cfg.Opener(runCtx, job.Target, factory.Options{
		ConnectTimeout: o.cfg.ConnectTimeout,
		QueryTimeout:   o.cfg.QueryTimeout,
		Logger:         logger,
	})
	if err != nil {
		res.Err = fmt.Errorf("opening connector: %w", err)
		logger.Error("run failed before any check ran", zap.Error(err))
		return res
	}
	defer func() { _ = conn.Close() }()

	meta, err := conn.Describe(runCtx)
	if err != nil {
		logger.Warn("describe failed, continuing without metadata", zap.Error(err))
		meta = &connector.Metadata{Environment: "unknown"}
	}

	var shell connector.ShellRunner
	if job.Target.HasSSH() {
		shell = sshexec.NewRunner(sshexec.Config{
			Hosts:          job.Target.SSH,
			ConnectTimeout: o.cfg.ConnectTimeout,
			Logger:         logger,
		})
	}

	r := runner.New(runner.Config{
		Connector: conn,
		Shell:     shell,
		Settings:  settings,
		Metadata:  meta,
		Logger:    logger,
	})
	out, err := r.Run(runCtx, resolution.Plugin, resolution.Actions)
	if err != nil {
		res.Err = fmt.Errorf("running checks: %w", err)
		return res
	}
	res.Items = out.Items

	evaluator := rules.NewEvaluator(resolution.RuleSet, logger)
	triggered := evaluator.Evaluate(out.Findings, settings)
	for i := range triggered {
		triggered[i].RunID = runID
	}

	run := &finding.Run{
		RunID: runID,
		Target: finding.TargetInfo{
			Technology:  string(job.Target.Technology),
			Host:        job.Target.Primary().Host,
			Port:        job.Target.Primary().Port,
			ClusterName: firstNonEmpty(meta.ClusterName, job.Target.ClusterName),
			Company:     job.Target.CompanyID,
		},
		VersionMetadata: finding.VersionMetadata{
			Version:     meta.Version,
			Major:       meta.Major,
			Minor:       meta.Minor,
			Environment: meta.Environment,
			NodeCount:   meta.NodeCount,
		},
		StartedAt:      startedAt,
		EndedAt:        time.Now().UTC(),
		Findings:       out.Findings,
		TriggeredRules: triggered,
	}
	// Scored here so the report and logs carry it even when trend
	// persistence is disabled.
	run.HealthScore = trend.ScoreRun(triggered)
	res.Run = run

	assessment, llmErr := o.llmStage(runCtx, job, run, &res, logger)
	if job.PromptOnly {
		return res
	}

	var b strings.Builder
	if err := report.Write(&b, report.Input{
		Run:        run,
		Items:      out.Items,
		Assessment: assessment,
		LLMError:   llmErr,
	}); err != nil {
		res.Err = fmt.Errorf("writing report: %w", err)
		return res
	}
	res.Report = b.String()

	if o.cfg.Ingester != nil {
		// Ingest proceeds even after cancellation so a partial run still
		// lands, within its own deadline.
		ingestCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), time.Minute)
		defer cancel()
		if err := o.cfg.Ingester.Persist(ingestCtx, run, infraMetadata(meta, job.Target)); err != nil {
			res.Err = err
			return res
		}
	}

	if out.SkippedConnector > 0 {
		res.Err = fmt.Errorf("connector became unavailable, %d checks skipped", out.SkippedConnector)
	}
	logger.Info("run finished",
		zap.Int("findings", out.Findings.Len()),
		zap.Int("triggered", len(triggered)),
		zap.Int("health_score", run.HealthScore))
	return res
}

// llmStage assembles the prompt and, unless PromptOnly or no provider is
// configured, calls the model. Returns the assessment text and a
// displayable error string for the report's error summary.
func (o *Orchestrator) llmStage(ctx context.Context, job Job, run *finding.Run, res *Result, logger *zap.Logger) (string, string) {
	if o.cfg.Provider == nil && !job.PromptOnly {
		return "", ""
	}

	cfg := o.cfg.Prompt
	cfg.Logger = logger
	text, audit, err := prompt.New(cfg).Assemble(prompt.Inputs{
		Findings:  run.Findings,
		Triggered: run.TriggeredRules,
		Target:    run.Target,
		Version:   run.VersionMetadata,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		logger.Error("prompt assembly failed", zap.Error(err))
		return "", fmt.Sprintf("prompt assembly failed: %v", err)
	}
	res.Prompt = text
	res.Audit = audit

	if job.PromptOnly || o.cfg.Provider == nil {
		return "", ""
	}

	resp, err := llm.CompleteWithRetry(ctx, o.cfg.Provider, llm.Request{Prompt: text}, logger)
	if err != nil {
		logger.Error("llm call failed", zap.Error(err))
		return "", fmt.Sprintf("%s (%s): %v", o.cfg.Provider.Name(), o.cfg.Provider.Model(), err)
	}
	return resp.Text, ""
}

func infraMetadata(meta *connector.Metadata, t *target.Target) map[string]interface{} {
	infra := map[string]interface{}{
		"environment": meta.Environment,
	}
	if len(meta.Features) > 0 {
		infra["features"] = meta.Features
	}
	if t.Hints.CloudRegion != "" {
		infra["cloud_region"] = t.Hints.CloudRegion
	}
	if t.Hints.Managed {
		infra["managed"] = true
	}
	return infra
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
