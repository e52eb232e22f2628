package scheduler

import (
	"time"

	"github.com/ikkim/storefront/pkg/logger"
	"github.com/robfig/cron/v3"
)

// StaleCartPurger deletes cart lines untouched for longer than retention.
// service.CartService implements it.
type StaleCartPurger interface {
	PurgeStaleCarts(retention time.Duration) (int64, error)
}

// CartCleanupScheduler periodically purges abandoned cart lines
type CartCleanupScheduler struct {
	cron      *cron.Cron
	purger    StaleCartPurger
	spec      string
	retention time.Duration
}

func NewCartCleanupScheduler(purger StaleCartPurger, spec string, retention time.Duration) *CartCleanupScheduler {
	return &CartCleanupScheduler{
		cron:      cron.New(),
		purger:    purger,
		spec:      spec,
		retention: retention,
	}
}

// Start registers the cleanup job and starts the cron runner
func (s *CartCleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.RunOnce)
	if err != nil {
		logger.Error("Failed to add cron job for cart cleanup", err, logger.Fields{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart cleanup scheduler started", logger.Fields{
		"spec":      s.spec,
		"retention": s.retention.String(),
	})
	return nil
}

// RunOnce performs a single purge
func (s *CartCleanupScheduler) RunOnce() {
	logger.Info("Starting scheduled cart cleanup")

	deleted, err := s.purger.PurgeStaleCarts(s.retention)
	if err != nil {
		logger.Error("Failed to purge stale carts from scheduler", err)
		return
	}

	logger.Info("Scheduled cart cleanup finished", logger.Fields{
		"deleted": deleted,
	})
}

// Stop stops the runner and waits for a running job to finish
func (s *CartCleanupScheduler) Stop() {
	logger.Info("Stopping cart cleanup scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Cart cleanup scheduler stopped")
}
