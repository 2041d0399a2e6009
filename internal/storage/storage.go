// Package storage keeps in-memory snapshots of download jobs, built from
// their events, and removes them after they expire.
package storage

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/internal/observability"
)

// Storer defines the interface for storage operations.
type Storer interface {
	// Create stores a new queued snapshot.
	Create(ctx context.Context, snap entity.JobSnapshot) error
	// ApplyEvent folds one job event into its snapshot.
	ApplyEvent(ctx context.Context, ev entity.Event) error
	Get(ctx context.Context, id string) (entity.JobSnapshot, error)
	// List returns all snapshots, oldest first.
	List(ctx context.Context) ([]entity.JobSnapshot, error)

	CleanupExpiredJobs(ctx context.Context, interval time.Duration)
}

type storage struct {
	log     *slog.Logger
	ttl     time.Duration
	metrics *observability.Metrics

	mu   sync.RWMutex
	jobs map[string]*entity.JobSnapshot // job id : snapshot
}

// New creates a new in-memory storage instance and starts its cleanup loop.
// metrics may be nil.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) Storer {
	stg := &storage{
		log:     log.With(slog.String("package", "storage")),
		ttl:     cfg.Storage.TTL,
		metrics: metrics,
		jobs:    make(map[string]*entity.JobSnapshot),
	}

	if cfg.Storage.CleanupInterval > 0 {
		go stg.CleanupExpiredJobs(ctx, cfg.Storage.CleanupInterval)
	}

	return stg
}

func (stg *storage) Create(ctx context.Context, snap entity.JobSnapshot) error {
	if snap.ID == "" {
		return errs.ErrJobIDEmpty
	}

	now := time.Now()
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}

	snap.State = entity.JobStateQueued
	snap.UpdatedAt = now
	snap.ExpiresAt = now.Add(stg.ttl)

	stg.mu.Lock()
	stg.jobs[snap.ID] = &snap
	count := len(stg.jobs)
	stg.mu.Unlock()

	stg.metrics.SetStoredJobs(count)
	stg.log.DebugContext(ctx, "job stored", slog.Any("job", snap))

	return nil
}

func (stg *storage) ApplyEvent(ctx context.Context, ev entity.Event) error {
	stg.mu.Lock()
	defer stg.mu.Unlock()

	snap, ok := stg.jobs[ev.JobID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrJobNotFound, ev.JobID)
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Kind {
	case entity.EventProgress:
		if snap.State == entity.JobStateQueued {
			snap.State = entity.JobStateRunning
		}

		snap.Progress = max(snap.Progress, ev.Percent)
	case entity.EventSucceeded:
		snap.State = entity.JobStateSucceeded
		snap.Progress = 100
		snap.Filename = ev.Filename
	case entity.EventFailed:
		snap.State = entity.JobStateFailed
		snap.Error = ev.Message
	case entity.EventFinished:
		snap.Finished = true
		// a job that never reported a result counts as failed
		if !snap.State.IsTerminal() {
			snap.State = entity.JobStateFailed
		}

		snap.ExpiresAt = at.Add(stg.ttl)
	}

	snap.UpdatedAt = at

	stg.log.DebugContext(ctx, "job updated", slog.Any("event", ev), slog.Any("job", *snap))

	return nil
}

func (stg *storage) Get(_ context.Context, id string) (entity.JobSnapshot, error) {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	snap, ok := stg.jobs[id]
	if !ok {
		return entity.JobSnapshot{}, fmt.Errorf("%w: %s", errs.ErrJobNotFound, id)
	}

	return *snap, nil
}

func (stg *storage) List(_ context.Context) ([]entity.JobSnapshot, error) {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	if len(stg.jobs) == 0 {
		return nil, errs.ErrNoJobs
	}

	jobs := make([]entity.JobSnapshot, 0, len(stg.jobs))
	for _, snap := range stg.jobs {
		jobs = append(jobs, *snap)
	}

	slices.SortFunc(jobs, func(a, b entity.JobSnapshot) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return jobs, nil
}
