package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mimonstr/CryptoMonitorBot/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	subs    map[int64][]domain.Subscription
	touched []string
	listErr error
	enumErr error
}

func (f *fakeStore) UsersWithSubscriptions(context.Context) ([]int64, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []int64
	for id := range f.subs {
		users = append(users, id)
	}
	return users, nil
}

func (f *fakeStore) ListSubscriptions(_ context.Context, userID int64) ([]domain.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[userID], nil
}

func (f *fakeStore) TouchSubscription(_ context.Context, userID int64, currency string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, fmt.Sprintf("%d/%s", userID, currency))
	return nil
}

type fakePrices struct {
	prices map[string]float64
	fail   map[string]bool
}

func (f *fakePrices) Price(_ context.Context, symbol string) (float64, error) {
	if f.fail[symbol] {
		return 0, errors.New("upstream down")
	}
	return f.prices[symbol], nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	delivered   []string
	unavailable []string
	block       chan struct{} // when set, NotifyPrice waits until closed
}

func (f *fakeNotifier) NotifyPrice(userID int64, symbol string, _ float64) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, fmt.Sprintf("%d/%s", userID, symbol))
	return nil
}

func (f *fakeNotifier) NotifyUnavailable(userID int64, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = append(f.unavailable, fmt.Sprintf("%d/%s", userID, symbol))
	return nil
}

func newScheduler(store Store, prices PriceGateway, n Notifier, clock clockwork.Clock) *Scheduler {
	return New(store, prices, n, zap.NewNop(), 5*time.Minute, clock)
}

func dueSub(userID int64, symbol string, clock clockwork.Clock) domain.Subscription {
	return domain.Subscription{
		UserID:          userID,
		Currency:        symbol,
		IntervalMinutes: 30,
		LastNotifiedAt:  clock.Now().UTC().Add(-31 * time.Minute),
	}
}

func TestSweep_DeliversDueAndTouchesWatermark(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{subs: map[int64][]domain.Subscription{
		1: {
			dueSub(1, "BTC", clock),
			{UserID: 1, Currency: "ETH", IntervalMinutes: 30,
				LastNotifiedAt: clock.Now().UTC().Add(-time.Minute)}, // not due
		},
	}}
	prices := &fakePrices{prices: map[string]float64{"BTC": 64000}}
	notifier := &fakeNotifier{}

	newScheduler(store, prices, notifier, clock).Sweep(context.Background())

	assert.Equal(t, []string{"1/BTC"}, notifier.delivered)
	assert.Equal(t, []string{"1/BTC"}, store.touched)
	assert.Empty(t, notifier.unavailable)
}

func TestSweep_FetchFailureIsIsolatedAndKeepsWatermark(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{subs: map[int64][]domain.Subscription{
		1: {dueSub(1, "BTC", clock), dueSub(1, "ETH", clock)},
	}}
	prices := &fakePrices{
		prices: map[string]float64{"ETH": 3200},
		fail:   map[string]bool{"BTC": true},
	}
	notifier := &fakeNotifier{}

	newScheduler(store, prices, notifier, clock).Sweep(context.Background())

	assert.Equal(t, []string{"1/ETH"}, notifier.delivered,
		"a failing subscription must not block an independent one")
	assert.Equal(t, []string{"1/BTC"}, notifier.unavailable)
	assert.Equal(t, []string{"1/ETH"}, store.touched,
		"the failed subscription's watermark must stay put")
}

func TestSweep_EnumerationFailureIsNonFatal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{enumErr: errors.New("db gone")}
	notifier := &fakeNotifier{}
	s := newScheduler(store, &fakePrices{}, notifier, clock)

	s.Sweep(context.Background())
	assert.Empty(t, notifier.delivered)

	// Scheduler stays usable on the next tick.
	store.enumErr = nil
	store.subs = map[int64][]domain.Subscription{1: {dueSub(1, "BTC", clock)}}
	prices := &fakePrices{prices: map[string]float64{"BTC": 1}}
	s.prices = prices
	s.Sweep(context.Background())
	assert.Equal(t, []string{"1/BTC"}, notifier.delivered)
}

func TestSweep_SkipsWhileRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{subs: map[int64][]domain.Subscription{
		1: {dueSub(1, "BTC", clock)},
	}}
	prices := &fakePrices{prices: map[string]float64{"BTC": 1}}
	notifier := &fakeNotifier{block: make(chan struct{})}
	s := newScheduler(store, prices, notifier, clock)

	done := make(chan struct{})
	go func() {
		s.Sweep(context.Background())
		close(done)
	}()

	// Wait until the first sweep is blocked inside delivery.
	require.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)

	s.Sweep(context.Background()) // overlapping tick: must be skipped

	close(notifier.block)
	<-done

	assert.Equal(t, []string{"1/BTC"}, notifier.delivered,
		"the overlapping sweep must be skipped, not run twice")
}

func TestRun_TickAndShutdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{subs: map[int64][]domain.Subscription{
		1: {dueSub(1, "BTC", clock)},
	}}
	prices := &fakePrices{prices: map[string]float64{"BTC": 1}}
	notifier := &fakeNotifier{}
	s := newScheduler(store, prices, notifier, clock)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	clock.BlockUntil(1) // ticker registered
	clock.Advance(5 * time.Minute)

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.delivered) == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
