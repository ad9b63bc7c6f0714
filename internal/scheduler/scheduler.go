// Package scheduler runs the recurring notification sweep: on every tick it
// scans all subscriptions, decides which are due, fetches prices, and
// advances watermarks for delivered notifications.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Mimonstr/CryptoMonitorBot/internal/domain"
)

// Store is the slice of the repository the scheduler needs.
type Store interface {
	UsersWithSubscriptions(ctx context.Context) ([]int64, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error)
	TouchSubscription(ctx context.Context, userID int64, currency string, now time.Time) error
}

// PriceGateway fetches the current price for a symbol.
type PriceGateway interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Notifier delivers notification messages to a user. The telegram router
// implements it.
type Notifier interface {
	NotifyPrice(userID int64, symbol string, price float64) error
	NotifyUnavailable(userID int64, symbol string) error
}

// Scheduler periodically sweeps subscriptions and dispatches due
// notifications.
type Scheduler struct {
	store    Store
	prices   PriceGateway
	notifier Notifier
	log      *zap.Logger
	interval time.Duration
	clock    clockwork.Clock
	running  atomic.Bool
}

// New creates a Scheduler that sweeps every interval.
func New(store Store, prices PriceGateway, notifier Notifier, log *zap.Logger, interval time.Duration, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		store:    store,
		prices:   prices,
		notifier: notifier,
		log:      log,
		interval: interval,
		clock:    clock,
	}
}

// Run sweeps until ctx is canceled. An in-flight sweep finishes its current
// subscription before the loop exits.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one due-check cycle. Sweeps never overlap: if one is still
// running when the next tick fires, the tick is skipped.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	s.sweep(ctx)
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := s.clock.Now().UTC()

	users, err := s.store.UsersWithSubscriptions(ctx)
	if err != nil {
		// Degrade to an empty due set for this sweep; next tick retries.
		s.log.Error("enumerate users failed", zap.Error(err))
		return
	}

	for _, userID := range users {
		subs, err := s.store.ListSubscriptions(ctx, userID)
		if err != nil {
			s.log.Error("list subscriptions failed", zap.Error(err), zap.Int64("user", userID))
			continue
		}
		for _, sub := range subs {
			if !sub.Due(now) {
				continue
			}
			s.process(ctx, sub, now)
		}
	}
}

// process handles a single due subscription. Failures stay local to this
// subscription so the rest of the sweep proceeds.
func (s *Scheduler) process(ctx context.Context, sub domain.Subscription, now time.Time) {
	price, err := s.prices.Price(ctx, sub.Currency)
	if err != nil {
		// Watermark stays put so the next sweep retries at the same
		// cadence instead of resetting the clock.
		s.log.Warn("price fetch failed",
			zap.Error(err), zap.Int64("user", sub.UserID), zap.String("symbol", sub.Currency))
		if err := s.notifier.NotifyUnavailable(sub.UserID, sub.Currency); err != nil {
			s.log.Error("degraded notice delivery failed",
				zap.Error(err), zap.Int64("user", sub.UserID))
		}
		return
	}

	if err := s.notifier.NotifyPrice(sub.UserID, sub.Currency, price); err != nil {
		s.log.Error("notification delivery failed",
			zap.Error(err), zap.Int64("user", sub.UserID), zap.String("symbol", sub.Currency))
		return
	}

	if err := s.store.TouchSubscription(ctx, sub.UserID, sub.Currency, now); err != nil {
		s.log.Error("watermark update failed",
			zap.Error(err), zap.Int64("user", sub.UserID), zap.String("symbol", sub.Currency))
	}
}
