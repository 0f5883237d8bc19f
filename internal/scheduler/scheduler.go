// Package scheduler enqueues materialization runs: one at every UTC midnight
// plus on-demand triggers. Overlap with an in-flight run is fine; runs are
// idempotent.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akozlov/cashfolio/internal/jobs"
)

// Scheduler publishes a MaterializeJob on a daily cadence.
type Scheduler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// New creates a scheduler that publishes to the given queue.
func New(publisher jobs.Publisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{publisher: publisher, log: log}
}

// Run blocks until ctx is cancelled, publishing one job at each UTC
// midnight. A missed tick (process asleep, clock jump) is harmless: the next
// run materializes every occurrence that became due in the gap.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait := time.Until(nextMidnightUTC(time.Now()))
		s.log.Info().Dur("wait", wait).Msg("Scheduler sleeping until next UTC midnight")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := s.TriggerNow(ctx, nil, "schedule"); err != nil {
			s.log.Error().Err(err).Msg("Failed to enqueue scheduled materialization")
		}
	}
}

// TriggerNow enqueues a materialization run immediately. asOf overrides the
// reference instant; nil means the worker uses its own clock.
func (s *Scheduler) TriggerNow(ctx context.Context, asOf *time.Time, reason string) error {
	job := &jobs.MaterializeJob{
		AsOf:   asOf,
		Reason: reason,
	}
	if err := s.publisher.PublishMaterialize(ctx, job); err != nil {
		return err
	}

	event := s.log.Info().Str("job_id", job.JobID).Str("reason", reason)
	if asOf != nil {
		event = event.Time("as_of", *asOf)
	}
	event.Msg("Materialization run enqueued")
	return nil
}

func nextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
