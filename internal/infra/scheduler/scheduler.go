package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Cycle is one unit of polling work.
type Cycle interface {
	RunCycle(ctx context.Context) error
}

// PollScheduler runs a Cycle forever, sleeping after every run until the
// next activation of its cron schedule.
type PollScheduler struct {
	cycle      Cycle
	schedule   cron.Schedule
	maxBackoff time.Duration // 0 disables backoff
	logger     *logrus.Entry

	failures int
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPollScheduler(
	cycle Cycle,
	spec string, // e.g., "@every 10m" or "*/10 * * * *"
	maxBackoff time.Duration,
	logger *logrus.Entry,
) (*PollScheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return &PollScheduler{
		cycle:      cycle,
		schedule:   schedule,
		maxBackoff: maxBackoff,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}, nil
}

// Run blocks until ctx is cancelled. Cycle errors never stop the loop.
func (s *PollScheduler) Run(ctx context.Context) {
	s.logger.Info("Starting poll loop")

	for {
		if err := s.cycle.RunCycle(ctx); err != nil {
			s.failures++
		} else {
			s.failures = 0
		}
		if ctx.Err() != nil {
			break
		}

		delay := s.nextDelay(s.now())
		s.logger.WithFields(logrus.Fields{
			"delay":                delay.String(),
			"consecutive_failures": s.failures,
		}).Debug("Sleeping until next poll")

		if err := s.sleep(ctx, delay); err != nil {
			break
		}
	}

	s.logger.Info("Poll loop stopped")
}

// nextDelay is the wait until the next scheduled poll. With backoff enabled
// it doubles per consecutive failure, capped at maxBackoff.
func (s *PollScheduler) nextDelay(now time.Time) time.Duration {
	base := s.schedule.Next(now).Sub(now)
	if base < 0 {
		base = 0
	}
	if s.failures == 0 || s.maxBackoff <= base {
		return base
	}

	delay := base
	for i := 0; i < s.failures && delay < s.maxBackoff; i++ {
		delay *= 2
	}
	if delay > s.maxBackoff {
		delay = s.maxBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
