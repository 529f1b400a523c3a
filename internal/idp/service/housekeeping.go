package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
)

// HousekeepingService periodically sweeps invalid tokens so that expired
// sessions and codes do not pile up.
type HousekeepingService struct {
	Store    store.Store
	Tokens   *TokenHandler
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService returns a stopped service. A non-positive interval
// defaults to one hour.
func NewHousekeepingService(st store.Store, tokens *TokenHandler, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Tokens:   tokens,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep immediately and then on every tick until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop waits for an in-progress sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

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

// Sweep cleans up every account holding tokens, then drops whatever expired
// tokens are left. Failures are logged and do not stop the sweep.
func (s *HousekeepingService) Sweep(ctx context.Context) (removed int64) {
	s.Logger.Debug("starting housekeeping sweep")

	ids, err := s.Store.Accounts().ListAccountIDsWithTokens(ctx)
	if err != nil {
		s.Logger.Error("failed to list accounts with tokens", "error", err)
	}

	for _, id := range ids {
		n, err := s.Tokens.CleanUpTokens(ctx, domain.Account{ID: id})
		if err != nil {
			s.Logger.Error("failed to clean up tokens", "account_id", id, "error", err)
			continue
		}
		removed += n
	}

	n, err := s.Store.Tokens().DeleteExpiredTokens(ctx, s.Tokens.now())
	if err != nil {
		s.Logger.Error("failed to delete expired tokens", "error", err)
	} else {
		removed += n
	}

	s.Logger.Info("housekeeping sweep completed", "accounts", len(ids), "removed", removed)
	return removed
}
