package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/store"
)

// DefaultExpiredRetention is how long an expired invite stays pending before
// housekeeping closes it.
const DefaultExpiredRetention = 30 * 24 * time.Hour

// HousekeepingService closes invites that expired more than Retention ago by
// moving them from pending to rejected. Until then Verify keeps answering
// ErrExpired for them. A rejected invite therefore means withdrawn by an
// admin, superseded by a newer invite or registration, or closed here after
// the retention window. Nothing is deleted; invites are kept for audit.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Now       Clock

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: DefaultExpiredRetention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
		s.Logger.Info("housekeeping service started", "interval", s.Interval)
	})
}

// Stop blocks until any in-progress sweep has finished. Stopping a service
// that was never started is a no-op.
func (s *HousekeepingService) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep rejects every pending invite that expired before now minus Retention
// and returns how many were changed.
func (s *HousekeepingService) Sweep(ctx context.Context) int64 {
	now := s.Now.now()
	cutoff := now.Add(-max(s.Retention, 0))

	n, err := s.Store.Invites().RejectExpiredPendingInvites(ctx, "", cutoff, now)
	if err != nil {
		s.Logger.Error("failed to reject expired invites", "error", err)
		return 0
	}
	if n > 0 {
		s.Logger.Info("rejected expired invites", "count", n, "expired_before", cutoff)
	} else {
		s.Logger.Debug("no expired invites")
	}
	return n
}
