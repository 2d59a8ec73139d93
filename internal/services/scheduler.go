package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"station-platform/pkg/logging"
)

// RunFunc is invoked by the scheduler with the date to sync.
type RunFunc func(ctx context.Context, date time.Time)

// Scheduler triggers the sync once per day at a fixed local time. Ticks
// are not deduplicated against manual runs; overlapping runs race on the
// same composite keys with last-write-wins.
type Scheduler struct {
	clock  clockwork.Clock
	loc    *time.Location
	hour   int
	minute int
	run    RunFunc
	logger *logging.StructuredLogger
}

// NewScheduler creates a daily scheduler. The clock is injectable so tests
// can drive it with a fake.
func NewScheduler(clock clockwork.Clock, loc *time.Location, hour, minute int, run RunFunc, logger *logging.StructuredLogger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		loc:    loc,
		hour:   hour,
		minute: minute,
		run:    run,
		logger: logger,
	}
}

// Run blocks until the context is cancelled, firing the sync at every
// daily tick. A run's failure is the run's own concern; the scheduler
// simply proceeds to the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info(ctx, "[SCHEDULER_START] Daily sync scheduler running", logging.Fields{
		"hour":     s.hour,
		"minute":   s.minute,
		"timezone": s.loc.String(),
	})

	for {
		now := s.clock.Now().In(s.loc)
		next := s.NextTick(now)

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "[SCHEDULER_STOP] Scheduler stopping", logging.Fields{
				"reason": ctx.Err().Error(),
			})
			return
		case <-s.clock.After(next.Sub(now)):
		}

		tickDate := s.clock.Now().In(s.loc)
		s.logger.Info(ctx, "[SCHEDULER_TICK] Daily sync triggered", logging.Fields{
			"date": tickDate.Format("2006-01-02"),
		})
		s.run(ctx, tickDate)
	}
}

// NextTick returns the next scheduled fire time strictly after now.
func (s *Scheduler) NextTick(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
