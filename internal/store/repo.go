package store

import (
	"context"
	"time"

	"github.com/Mimonstr/CryptoMonitorBot/internal/domain"
)

// Repo defines storage operations for favorites and notification
// subscriptions. Both are keyed by (user, currency).
type Repo interface {
	IsFavorite(ctx context.Context, userID int64, currency string) (bool, error)
	AddFavorite(ctx context.Context, userID int64, currency string) error
	// RemoveFavorite deletes the favorite and any subscription for the
	// same (user, currency) atomically.
	RemoveFavorite(ctx context.Context, userID int64, currency string) error
	ListFavorites(ctx context.Context, userID int64) ([]string, error)

	// UpsertSubscription creates or replaces the subscription and resets
	// its watermark to now.
	UpsertSubscription(ctx context.Context, userID int64, currency string, intervalMinutes int, now time.Time) error
	// RemoveSubscription returns domain.ErrNotFound when no subscription
	// exists for the key.
	RemoveSubscription(ctx context.Context, userID int64, currency string) error
	ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error)
	SubscriptionExists(ctx context.Context, userID int64, currency string) (bool, error)
	// TouchSubscription advances the watermark after a delivered
	// notification.
	TouchSubscription(ctx context.Context, userID int64, currency string, now time.Time) error
	UsersWithSubscriptions(ctx context.Context) ([]int64, error)

	Close() error
}
