package storage

import (
	"context"
	"log/slog"
	"time"
)

// CleanupExpiredJobs removes expired snapshots of finished jobs every interval
// until ctx is done. Downloaded files are never touched.
func (stg *storage) CleanupExpiredJobs(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := stg.log.With(slog.String("action", "cleanup_expired_jobs"), slog.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			stg.performCleanup(ctx)
		case <-ctx.Done():
			log.Info("cleanup expired jobs stopped")

			return
		}
	}
}

func (stg *storage) performCleanup(ctx context.Context) {
	now := time.Now()

	stg.mu.Lock()

	removed := 0

	for id, snap := range stg.jobs {
		if snap.Finished && snap.ExpiresAt.Before(now) {
			delete(stg.jobs, id)

			removed++
		}
	}

	count := len(stg.jobs)
	stg.mu.Unlock()

	stg.metrics.SetStoredJobs(count)

	if removed == 0 {
		stg.log.DebugContext(ctx, "no expired jobs found to clean up")

		return
	}

	stg.metrics.RecordCleanup(removed)
	stg.log.InfoContext(ctx, "removed expired jobs", slog.Int("count", removed), slog.Int("remaining", count))
}
