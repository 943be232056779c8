// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package importer orchestrates import runs: fetch a source's feed, push
// every record through reconciliation, and account for the outcomes.
//
// Failure handling is two-tier. An unreachable or unparseable feed aborts
// the whole run, because nothing trustworthy was received. A record that
// fails inside reconciliation is logged and skipped; one rotten record
// never takes down the rest of the batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/feed"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/metrics"
	"github.com/eventry/eventry/internal/models"
)

// RecordReconciler imports one parsed record.
type RecordReconciler interface {
	Import(ctx context.Context, src *models.Source, parsed *models.ParsedEvent) (*models.AbstractEvent, error)
}

// Stats is the accounting for one import run of one source.
type Stats struct {
	SourceID  int64         `json:"source_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Status is "ok", "unreachable", or "error".
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	Records   int `json:"records"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Invalid   int `json:"invalid"`
	Errors    int `json:"errors"`
}

// Importer runs imports for configured sources.
type Importer struct {
	db         *database.DB
	fetcher    feed.Fetcher
	reconciler RecordReconciler

	mu       sync.RWMutex
	lastRuns map[int64]*Stats
}

// New builds an importer.
func New(db *database.DB, fetcher feed.Fetcher, reconciler RecordReconciler) *Importer {
	return &Importer{
		db:         db,
		fetcher:    fetcher,
		reconciler: reconciler,
		lastRuns:   make(map[int64]*Stats),
	}
}

// Run imports one source end to end. The returned stats are also retained
// for LastRun. The error is non-nil only when the run as a whole failed;
// per-record failures are counted in Stats.Errors.
func (i *Importer) Run(ctx context.Context, src *models.Source) (*Stats, error) {
	runID := logging.GenerateRunID()
	ctx = logging.ContextWithRunID(ctx, runID)

	stats := &Stats{SourceID: src.ID, StartedAt: time.Now().UTC()}
	log := logging.Ctx(ctx)
	log.Info().Int64("source_id", src.ID).Str("url", src.URL).Msg("Import run started")

	records, err := i.fetcher.Fetch(ctx, src)
	if err != nil {
		var unreachable *feed.UnreachableError
		if errors.As(err, &unreachable) {
			stats.Status = "unreachable"
		} else {
			stats.Status = "error"
		}
		stats.Error = err.Error()
		i.finish(ctx, stats)
		return stats, fmt.Errorf("import source %d: %w", src.ID, err)
	}

	stats.Records = len(records)
	if len(records) == 0 {
		// A reachable feed with nothing in it is a successful run.
		log.Info().Int64("source_id", src.ID).Msg("Feed contained no events")
	}

	for _, rec := range records {
		ae, err := i.reconciler.Import(ctx, src, rec)
		if err != nil {
			stats.Errors++
			metrics.RecordOutcome("error")
			log.Error().Err(err).
				Int64("source_id", src.ID).
				Str("external_id", rec.ExternalID).
				Msg("Record import failed")
			continue
		}
		stats.count(ae.Result)
		metrics.RecordOutcome(string(ae.Result))
	}

	if err := i.db.TouchSourceImported(ctx, src.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Int64("source_id", src.ID).Msg("Failed to record import timestamp")
	}

	stats.Status = "ok"
	i.finish(ctx, stats)
	return stats, nil
}

// RunAll imports every enabled source sequentially. A failed source does
// not stop the remaining ones.
func (i *Importer) RunAll(ctx context.Context) error {
	sources, err := i.db.ListEnabledSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	var failed int
	for _, src := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := i.Run(ctx, src); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(sources))
	}
	return nil
}

// LastRun returns the retained stats of the source's most recent run, or
// nil when it has not run since startup.
func (i *Importer) LastRun(sourceID int64) *Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastRuns[sourceID]
}

// LastRuns returns the retained stats of every source that ran.
func (i *Importer) LastRuns() []*Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]*Stats, 0, len(i.lastRuns))
	for _, s := range i.lastRuns {
		out = append(out, s)
	}
	return out
}

func (i *Importer) finish(ctx context.Context, stats *Stats) {
	stats.Duration = time.Since(stats.StartedAt)
	metrics.RecordImportRun(stats.Status, stats.Duration, stats.Records)

	i.mu.Lock()
	i.lastRuns[stats.SourceID] = stats
	i.mu.Unlock()

	logging.Ctx(ctx).Info().
		Int64("source_id", stats.SourceID).
		Str("status", stats.Status).
		Int("records", stats.Records).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("unchanged", stats.Unchanged).
		Int("invalid", stats.Invalid).
		Int("errors", stats.Errors).
		Dur("duration", stats.Duration).
		Msg("Import run finished")
}

func (s *Stats) count(outcome models.Outcome) {
	switch outcome {
	case models.OutcomeCreated:
		s.Created++
	case models.OutcomeUpdated:
		s.Updated++
	case models.OutcomeUnchanged:
		s.Unchanged++
	case models.OutcomeInvalid:
		s.Invalid++
	}
}
