// Package ingest drives the periodic pull from the access-control provider
// into the movement-event log.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/metrics"
	"carpark-status-backend/internal/model"
	"carpark-status-backend/internal/notification"
	"carpark-status-backend/internal/store"
)

// MovementFetcher is the provider-client seam the job depends on.
type MovementFetcher interface {
	FetchMovements(ctx context.Context, start, end time.Time) ([]model.MovementEvent, error)
}

// Broadcaster pushes a payload to subscribed dashboards.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Job fetches, normalizes and persists movement events. At most one run is
// in flight at a time: concurrent triggers (scheduler tick, manual trigger)
// are dropped, not queued.
type Job struct {
	cfg      *config.IngestConfig
	fetcher  MovementFetcher
	store    store.EventStore
	notifier notification.Notifier
	pool     Broadcaster
	loc      *time.Location

	running     atomic.Bool
	lastSuccess atomic.Int64 // unix seconds; 0 = never
}

// NewJob wires an ingestion job. pool may be nil when push notifications
// are not configured.
func NewJob(cfg *config.IngestConfig, fetcher MovementFetcher, s store.EventStore, notifier notification.Notifier, pool Broadcaster) (*Job, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	return &Job{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    s,
		notifier: notifier,
		pool:     pool,
		loc:      loc,
	}, nil
}

// Run starts the scheduler loop: one immediate run, then one per interval.
// Overlap protection is entirely RunRange's single-flight flag.
func (j *Job) Run(ctx context.Context) {
	if !j.cfg.Enabled {
		log.Println("Ingestion is disabled. Not starting.")
		return
	}
	log.Println("Starting ingestion scheduler...")

	j.RunOnce(ctx)

	timer := time.NewTimer(j.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Ingestion scheduler shutting down.")
			return
		case <-timer.C:
			j.RunOnce(ctx)
			timer.Reset(j.cfg.Interval)
		}
	}
}

// RunOnce ingests today's movements (midnight to now in the configured
// timezone).
func (j *Job) RunOnce(ctx context.Context) error {
	now := time.Now().In(j.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)
	return j.RunRange(ctx, start, now)
}

// RunRange ingests the given date range. If a run is already in flight the
// call logs and returns nil immediately; the run is dropped, not queued.
// Exactly one outcome notification is emitted: success with counts when at
// least one new event was stored, or failure with the error message.
func (j *Job) RunRange(ctx context.Context, start, end time.Time) error {
	if !j.running.CompareAndSwap(false, true) {
		log.Println("ingest: run already in progress, skipping trigger")
		metrics.IngestSkippedTotal.Inc()
		return nil
	}
	defer j.running.Store(false)

	runID := uuid.NewString()
	startedAt := time.Now()
	log.Printf("ingest: run %s starting for %s .. %s", runID,
		start.Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05"))

	events, err := j.fetcher.FetchMovements(ctx, start, end)
	if err != nil {
		j.fail(ctx, runID, fmt.Errorf("fetch failed: %w", err))
		return err
	}

	inserted, err := j.store.Append(ctx, events)
	if err != nil {
		j.fail(ctx, runID, fmt.Errorf("persist failed: %w", err))
		return err
	}

	now := time.Now().In(j.loc)
	stats, err := j.store.Stats(ctx, now)
	if err != nil {
		log.Printf("ingest: run %s stats query failed: %v", runID, err)
	} else {
		metrics.ParkedVehicles.Set(float64(stats.CurrentlyParked))
	}

	j.lastSuccess.Store(now.Unix())
	metrics.IngestRunsTotal.WithLabelValues("success").Inc()
	metrics.MovementEventsInsertedTotal.Add(float64(inserted))
	metrics.IngestDuration.Observe(time.Since(startedAt).Seconds())

	log.Printf("ingest: run %s finished, fetched=%d inserted=%d", runID, len(events), inserted)

	if inserted > 0 {
		j.notifier.Notify(ctx, notification.RunReport{
			RunID:       runID,
			Success:     true,
			Fetched:     len(events),
			Inserted:    inserted,
			Parked:      stats.CurrentlyParked,
			CompletedAt: now,
		})
		if j.pool != nil {
			j.pool.Broadcast([]byte(fmt.Sprintf("%d new movements ingested, %d vehicles parked", inserted, stats.CurrentlyParked)))
		}
	}
	return nil
}

// LastUpdate reports when the last successful run finished; zero time when
// no run has succeeded yet.
func (j *Job) LastUpdate() time.Time {
	secs := j.lastSuccess.Load()
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).In(j.loc)
}

func (j *Job) fail(ctx context.Context, runID string, err error) {
	log.Printf("ingest: run %s failed: %v", runID, err)
	metrics.IngestRunsTotal.WithLabelValues("failure").Inc()
	j.notifier.Notify(ctx, notification.RunReport{
		RunID:       runID,
		Success:     false,
		Error:       err.Error(),
		CompletedAt: time.Now().In(j.loc),
	})
}
