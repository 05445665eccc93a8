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
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule re-runs a fixed job set on a cron expression until the
// context is cancelled. Overlapping runs are skipped: if a previous
// sweep is still in flight when the cron fires, the tick is dropped.
type Schedule struct {
	orch   *Orchestrator
	jobs   []Job
	engine *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	running bool

	// OnResults receives each sweep's results. Optional.
	OnResults func([]Result)
}

// NewSchedule validates the cron expression (standard 5-field format)
// and prepares the schedule.
func (o *Orchestrator) NewSchedule(spec string, jobs []Job) (*Schedule, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s := &Schedule{
		orch:   o,
		jobs:   jobs,
		engine: cron.New(),
		logger: o.logger.With(zap.String("schedule", spec)),
	}
	if _, err := s.engine.AddFunc(spec, func() { s.sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("registering schedule: %w", err)
	}
	return s, nil
}

// Run starts the cron engine and blocks until ctx is cancelled, then
// waits for a running sweep to drain.
func (s *Schedule) Run(ctx context.Context) error {
	s.logger.Info("schedule started", zap.Int("targets", len(s.jobs)))
	s.engine.Start()
	<-ctx.Done()
	stopped := s.engine.Stop()
	<-stopped.Done()
	s.logger.Info("schedule stopped")
	return ctx.Err()
}

func (s *Schedule) sweep(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("sweep skipped, previous still running")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	results, err := s.orch.RunAll(ctx, s.jobs)
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		return
	}
	succeeded, partial, failed := Outcome(results)
	s.logger.Info("sweep finished",
		zap.Int("succeeded", succeeded),
		zap.Int("partial", partial),
		zap.Int("failed", failed))
	if s.OnResults != nil {
		s.OnResults(results)
	}
}
