// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package scheduler runs periodic imports of all enabled sources on a
// cron schedule. It implements suture.Service so the supervisor restarts
// it on failure.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/thejerf/suture/v4"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/logging"
)

// Runner triggers a full import pass. The importer satisfies it.
type Runner interface {
	RunAll(ctx context.Context) error
}

// Scheduler fires Runner.RunAll on a cron spec.
type Scheduler struct {
	spec   string
	runner Runner
}

// New creates a scheduler from config. The caller decides whether to add
// it to the supervisor based on cfg.Enabled.
func New(cfg *config.SchedulerConfig, runner Runner) *Scheduler {
	return &Scheduler{spec: cfg.Spec, runner: runner}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string { return "import-scheduler" }

// Serve runs the cron loop until ctx is cancelled. A malformed cron spec
// is a configuration error, not a transient failure, so it returns
// suture.ErrDoNotRestart.
func (s *Scheduler) Serve(ctx context.Context) error {
	c := cron.New()

	_, err := c.AddFunc(s.spec, func() {
		runCtx := logging.ContextWithNewRunID(ctx)
		logging.Ctx(runCtx).Info().Str("spec", s.spec).Msg("Scheduled import starting")
		if err := s.runner.RunAll(runCtx); err != nil {
			logging.Ctx(runCtx).Error().Err(err).Msg("Scheduled import finished with failures")
		}
	})
	if err != nil {
		return errors.Join(suture.ErrDoNotRestart,
			fmt.Errorf("invalid cron spec %q: %w", s.spec, err))
	}

	c.Start()
	logging.Info().Str("spec", s.spec).Msg("Import scheduler started")

	<-ctx.Done()

	// Stop accepting new runs, then wait for any in-flight run to finish.
	<-c.Stop().Done()
	return ctx.Err()
}
