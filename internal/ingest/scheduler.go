package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agorino/catalog-service/internal/database"
)

// Scheduler drives periodic feed processing and repairs merchants left
// in the running state by an interrupted process.
type Scheduler struct {
	coordinator *Coordinator
	interval    time.Duration
}

// NewScheduler creates a Scheduler with the given refresh interval
func NewScheduler(coordinator *Coordinator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{coordinator: coordinator, interval: interval}
}

// Run blocks until ctx is cancelled, syncing all enabled merchants
// every interval. The stale-sync sweep runs immediately on start and
// before each cycle.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().
		Str("component", "ingest").
		Dur("interval", s.interval).
		Msg("Feed scheduler started")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("component", "ingest").
				Msg("Feed scheduler stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
			results := s.coordinator.SyncAll(ctx)
			ok, failed := 0, 0
			for _, r := range results {
				if r.Status == database.SyncStatusOK {
					ok++
				} else {
					failed++
				}
			}
			log.Info().
				Str("component", "ingest").
				Int("ok", ok).
				Int("failed", failed).
				Msg("Scheduled feed processing finished")
		}
	}
}

// sweep marks merchants stuck in 'running' beyond two intervals as
// errored so the next cycle picks them up again.
func (s *Scheduler) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-2 * s.interval)
	repaired, err := database.SweepStaleSyncs(ctx, cutoff)
	if err != nil {
		log.Error().
			Str("component", "ingest").
			Err(err).
			Msg("Stale sync sweep failed")
		return
	}
	if repaired > 0 {
		log.Warn().
			Str("component", "ingest").
			Int("repaired", repaired).
			Msg("Repaired interrupted syncs")
	}
}
