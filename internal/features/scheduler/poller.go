package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartPolling launches the durable timer loop. Scheduled runs live in the
// store with their due timestamps, so pending work survives restarts; the
// loop only claims and executes what is due.
func (s *SchedulerServiceImpl) StartPolling() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler poll loop already started")
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.poll)
	if _, err := s.cron.AddFunc(spec, s.drainDue); err != nil {
		return fmt.Errorf("failed to register poll loop: %w", err)
	}
	s.cron.Start()
	s.Logger.Info("scheduler poll loop started", zap.String("cadence", s.poll.String()))
	return nil
}

func (s *SchedulerServiceImpl) StopPolling() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron = nil
	}
	return nil
}

// drainDue claims due scheduled runs one at a time until none remain. The
// claim transition (scheduled -> running) is conditional, so a concurrent
// cancel or a second poller can never execute the same run twice.
func (s *SchedulerServiceImpl) drainDue() {
	ctx := context.Background()
	for {
		r, err := s.RunRepo.ClaimDue(ctx, s.now())
		if err != nil {
			s.Logger.Error("failed to claim due run", zap.Error(err))
			return
		}
		if r == nil {
			return
		}

		def, err := s.AutomationRepo.GetByID(ctx, r.AutomationID.Hex())
		if err != nil {
			s.Logger.Error("failed to load automation for due run", zap.Error(err),
				zap.String("runId", r.ID.Hex()))
			continue
		}
		if def == nil {
			// Owning automation was deleted after scheduling.
			s.finishInvalid(ctx, r, "automation no longer exists")
			continue
		}

		s.execute(ctx, def, r)
	}
}
