// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"journey-progression/utils"
)

// StartCatalogScheduler re-syncs the journey catalog every interval. The
// returned scheduler must be shut down by the caller.
func (s *CatalogService) StartCatalogScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, interval/2)
			defer cancel()
			if _, err := s.Sync(runCtx); err != nil {
				utils.Logger.Error("❌ [Scheduler] catalog sync failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	utils.Logger.Info("⏱️ [Scheduler] catalog sync scheduled", zap.Duration("interval", interval))
	return sched, nil
}
