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
// Package runner executes a resolved action list against one connector.
// It isolates check failures, enforces per-check deadlines, and emits a
// Finding for every check, including the ones that fail or are skipped.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/finding"
	"github.com/teradata-labs/pulse/pkg/plugin"
	"github.com/teradata-labs/pulse/pkg/target"
)

// Defaults for deadlines. Overridable per check via action or settings.
const (
	DefaultCheckTimeout = 30 * time.Second
	DefaultCancelGrace  = 5 * time.Second
)

// Config wires a Runner.
type Config struct {
	Connector connector.Connector
	Shell     connector.ShellRunner
	Settings  *target.Settings
	Metadata  *connector.Metadata
	Logger    *zap.Logger

	CheckTimeout time.Duration
	CancelGrace  time.Duration
}

// Item is one report-writer input in action order: a header, a static
// text fragment, or a reference to a check's Finding.
type Item struct {
	Kind    plugin.ActionKind
	Text    string
	CheckID string
}

// Output is the result of one runner pass.
type Output struct {
	Findings *finding.Store
	Items    []Item

	// SkippedConnector counts checks skipped because the connector
	// became unavailable mid-run.
	SkippedConnector int
}

// Runner drives the action list. Single-threaded per target; the
// connector is never called concurrently.
type Runner struct {
	cfg    Config
	logger *zap.Logger

	// fatal is set when the connector reports auth or persistent
	// connection errors; remaining checks are skipped, not failed.
	fatal bool
}

// New builds a Runner with defaults applied.
func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
		if cfg.Settings != nil {
			if secs := cfg.Settings.Int("check_timeout_secs", 0); secs > 0 {
				cfg.CheckTimeout = time.Duration(secs) * time.Second
			}
		}
	}
	if cfg.CancelGrace == 0 {
		cfg.CancelGrace = DefaultCancelGrace
	}
	return &Runner{cfg: cfg, logger: cfg.Logger}
}

// Run executes the actions in declared order and returns the findings
// store, frozen. Cancellation lets the in-flight check finish within the
// grace period, then skips the rest; the caller still evaluates rules
// over what was collected.
func (r *Runner) Run(ctx context.Context, p *plugin.Plugin, actions []plugin.Action) (*Output, error) {
	out := &Output{Findings: finding.NewStore()}

	for _, action := range actions {
		if !action.Guard.Allows(r.cfg.Settings) {
			r.logger.Debug("action skipped by guard",
				zap.String("kind", string(action.Kind)),
				zap.String("name", action.Name))
			continue
		}

		switch action.Kind {
		case plugin.ActionHeader:
			out.Items = append(out.Items, Item{Kind: plugin.ActionHeader, Text: action.Name})
		case plugin.ActionStaticText:
			out.Items = append(out.Items, Item{Kind: plugin.ActionStaticText, Text: p.StaticTexts[action.Name]})
		case plugin.ActionRunCheck:
			f := r.runCheck(ctx, p, action, out)
			if err := out.Findings.Put(f); err != nil {
				return nil, fmt.Errorf("recording finding: %w", err)
			}
			out.Items = append(out.Items, Item{Kind: plugin.ActionRunCheck, CheckID: f.CheckID})
		}
	}

	out.Findings.Freeze()
	return out, nil
}

func (r *Runner) runCheck(ctx context.Context, p *plugin.Plugin, action plugin.Action, out *Output) *finding.Finding {
	started := time.Now()

	if r.fatal {
		out.SkippedConnector++
		return skipped(action.Name, started, "connector unavailable")
	}
	if ctx.Err() != nil {
		return skipped(action.Name, started, "run cancelled")
	}

	check, ok := p.Checks[action.Name]
	if !ok {
		return errored(action.Name, started, "check_error",
			fmt.Sprintf("check %q is not registered", action.Name))
	}

	timeout := r.cfg.CheckTimeout
	if action.TimeoutSecs > 0 {
		timeout = time.Duration(action.TimeoutSecs) * time.Second
	}

	// The check gets its own deadline, detached from the run context so
	// a cancellation can still grant the grace period.
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	cc := &plugin.CheckContext{
		Connector: r.cfg.Connector,
		Shell:     r.cfg.Shell,
		Settings:  r.cfg.Settings,
		Metadata:  r.cfg.Metadata,
		Logger:    r.logger.With(zap.String("check", action.Name)),
	}

	type result struct {
		f   *finding.Finding
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("check panicked: %v", rec)}
			}
		}()
		f, err := check(checkCtx, cc)
		done <- result{f: f, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		grace := time.NewTimer(r.cfg.CancelGrace)
		defer grace.Stop()
		select {
		case res = <-done:
		case <-grace.C:
			cancel()
			r.logger.Warn("check abandoned after cancellation grace",
				zap.String("check", action.Name),
				zap.Duration("grace", r.cfg.CancelGrace))
			return skipped(action.Name, started, "run cancelled")
		}
	}

	return r.finish(action.Name, started, res.f, res.err)
}

// finish normalizes the check output into a well-formed Finding and
// flips the fatal flag on connector-level failures.
func (r *Runner) finish(checkID string, started time.Time, f *finding.Finding, err error) *finding.Finding {
	if err != nil {
		kind := "check_error"
		var cerr *connector.Error
		if errors.As(err, &cerr) {
			kind = string(cerr.Kind)
			if connector.IsFatal(err) {
				r.fatal = true
				r.logger.Warn("connector unavailable, skipping remaining checks",
					zap.String("check", checkID),
					zap.String("kind", kind))
			}
		}
		r.logger.Error("check failed",
			zap.String("check", checkID),
			zap.String("kind", kind),
			zap.Error(err))
		out := errored(checkID, started, kind, err.Error())
		return out
	}

	if f == nil {
		return errored(checkID, started, "check_error", "check returned no finding")
	}
	if f.CheckID == "" {
		f.CheckID = checkID
	}
	if f.StartedAt.IsZero() {
		f.StartedAt = started
	}
	if f.DurationMS == 0 {
		f.DurationMS = time.Since(started).Milliseconds()
	}
	if !f.Status.Valid() {
		f.Status = finding.StatusError
		f.Error = &finding.CheckError{Kind: "check_error", Message: "invalid status"}
	}
	return f
}

func skipped(checkID string, started time.Time, reason string) *finding.Finding {
	return &finding.Finding{
		CheckID:    checkID,
		Status:     finding.StatusSkipped,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
		Error:      &finding.CheckError{Kind: "skipped", Message: reason},
	}
}

func errored(checkID string, started time.Time, kind, message string) *finding.Finding {
	return &finding.Finding{
		CheckID:    checkID,
		Status:     finding.StatusError,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
		Error:      &finding.CheckError{Kind: kind, Message: message},
	}
}
