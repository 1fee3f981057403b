package accounts

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mlomp/mairie-backend/pkg/observability"
)

// Janitor periodically clears expired reset tokens so stale credentials do
// not linger in the store
type Janitor struct {
	service *Service
	logger  *observability.Logger
	cron    *cron.Cron
}

// NewJanitor creates a janitor running on the given service
func NewJanitor(service *Service, logger *observability.Logger) *Janitor {
	return &Janitor{
		service: service,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the hourly cleanup
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cleared, err := j.service.CleanupExpiredResetTokens(ctx)
		if err != nil {
			j.logger.WithError(err).Error("reset token cleanup failed")
			return
		}
		if cleared > 0 {
			j.logger.Info("cleared expired reset tokens", "count", cleared)
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to finish
func (j *Janitor) Stop(ctx context.Context) error {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
