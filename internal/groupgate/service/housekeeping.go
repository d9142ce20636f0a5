package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/store"
)

// NonceMaxAge is how long an unconsumed consent nonce is kept before
// housekeeping reclaims it.
const NonceMaxAge = 1 * time.Hour

// HousekeepingService periodically deletes expired access tokens, expired
// authorization codes and abandoned consent nonces. Expiry is otherwise
// enforced lazily at use time; this sweep only bounds table growth and
// reclaims tokens whose bound code was never exchanged.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
// Each deletion is independent - failures in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Info("starting housekeeping cleanup")

	if err := s.Store.AccessTokens().DeleteExpiredAccessTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired access tokens", "error", err)
	}

	if err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx); err != nil {
		s.Logger.Error("failed to delete expired authorization codes", "error", err)
	}

	if err := s.Store.AuthorizeNonces().DeleteStaleAuthorizeNonces(ctx, time.Now().Add(-NonceMaxAge)); err != nil {
		s.Logger.Error("failed to delete stale authorize nonces", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed")
}
