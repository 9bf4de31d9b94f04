package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLoader counts loads and returns whatever LoadFunc yields.
type mockLoader struct {
	calls    int
	LoadFunc func(ctx context.Context) (domain.Ledger, error)
}

func (m *mockLoader) Load(ctx context.Context) (domain.Ledger, error) {
	m.calls++
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return domain.Ledger{}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCache_ServesSnapshotWithinTTL(t *testing.T) {
	loader := &mockLoader{}
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache(loader, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)
	clock.Advance(9 * time.Second)
	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)

	clock.Advance(time.Second)
	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestCache_InvalidateAndRefresh(t *testing.T) {
	loader := &mockLoader{}
	clock := &fakeClock{t: time.Now()}
	cache := NewCache(loader, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = cache.Get(ctx)
	cache.Invalidate()
	_, _ = cache.Get(ctx)
	assert.Equal(t, 2, loader.calls)

	_, _ = cache.Refresh(ctx)
	assert.Equal(t, 3, loader.calls)
	_, _ = cache.Get(ctx)
	assert.Equal(t, 3, loader.calls)
}

func TestCache_ReturnsCallerOwnedCopies(t *testing.T) {
	loader := &mockLoader{LoadFunc: func(ctx context.Context) (domain.Ledger, error) {
		return domain.Ledger{{Merchant: "Uber"}}, nil
	}}
	cache := NewCache(loader, time.Minute)
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)
	first[0].Merchant = "mutated"

	second, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Uber", second[0].Merchant)
}

func TestCache_PropagatesLoadErrors(t *testing.T) {
	boom := errors.New("permission denied")
	loader := &mockLoader{LoadFunc: func(ctx context.Context) (domain.Ledger, error) {
		return nil, boom
	}}
	cache := NewCache(loader, time.Minute)

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = cache.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, loader.calls, "failed loads are not cached")
}

func TestCache_ZeroTTLAlwaysReloads(t *testing.T) {
	loader := &mockLoader{}
	cache := NewCache(loader, 0)

	for i := 0; i < 3; i++ {
		_, err := cache.Get(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, loader.calls)
}
