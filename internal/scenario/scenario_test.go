package scenario

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/generator"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAppender struct {
	calls int
	err   error
}

func (f *failingAppender) Append(ctx context.Context, tx domain.Transaction) error {
	f.calls++
	if f.calls > 1 {
		return f.err
	}
	return nil
}

// steppingClock returns a clock that advances one minute per call.
func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func newGenerator(t *testing.T) *generator.Generator {
	t.Helper()
	start := time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)
	g, err := generator.New(generator.StreamCatalog(), generator.WithSeed(7), generator.WithClock(steppingClock(start)))
	require.NoError(t, err)
	return g
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "duplicate-subscription", want: DuplicateSubscriptionName},
		{name: "SPENDING_SPIKE", want: SpendingSpikeName},
		{name: "  spending-spike ", want: SpendingSpikeName},
		{name: "meteor-strike", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Lookup(tt.name)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownScenario), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name)
		})
	}
}

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{DuplicateSubscriptionName, SpendingSpikeName}, Names())

	dup := DuplicateSubscription()
	require.Len(t, dup.Rows, 2)
	for _, o := range dup.Rows {
		cat, _ := o.Category.Get()
		merchant, _ := o.Merchant.Get()
		amount, _ := o.Amount.Get()
		assert.Equal(t, "Subscriptions", cat)
		assert.Equal(t, "Netflix", merchant)
		assert.True(t, amount.Equal(decimal.NewFromInt(499)))
	}

	spike := SpendingSpike()
	require.Len(t, spike.Rows, 1)
	amount, ok := spike.Rows[0].Amount.Get()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.NewFromInt(25000)))

	scripts := DefaultScripts()
	assert.Equal(t, DuplicateSubscriptionName, scripts[5].Name)
	assert.Equal(t, SpendingSpikeName, scripts[12].Name)
}

func TestInject_DuplicateTwiceAppendsFourRowsInOrder(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewStore(filepath.Join(t.TempDir(), "ledger.csv"), ledger.WithLocation(time.UTC))
	in := NewInjector(newGenerator(t), store, zerolog.Nop())

	first, err := in.Inject(ctx, DuplicateSubscriptionName)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := in.Inject(ctx, DuplicateSubscriptionName)
	require.NoError(t, err)
	assert.Len(t, second, 2)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, tx := range got {
		assert.Equal(t, "Netflix", tx.Merchant)
		assert.Equal(t, "Subscriptions", tx.Category)
		assert.True(t, tx.Amount.Equal(decimal.NewFromInt(499)))
		if i > 0 {
			assert.False(t, tx.Timestamp.Before(got[i-1].Timestamp))
		}
	}
	assert.Equal(t, first[0].Timestamp, got[0].Timestamp)
	assert.Equal(t, second[1].Timestamp, got[3].Timestamp)
}

func TestInject_UnknownScenarioWritesNothing(t *testing.T) {
	store := &failingAppender{}
	in := NewInjector(newGenerator(t), store, zerolog.Nop())

	rows, err := in.Inject(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.Nil(t, rows)
	assert.Zero(t, store.calls)
}

func TestInject_StorageFaultReturnsWrittenRows(t *testing.T) {
	boom := errors.New("read-only file system")
	store := &failingAppender{err: boom}
	in := NewInjector(newGenerator(t), store, zerolog.Nop())

	rows, err := in.Inject(context.Background(), DuplicateSubscriptionName)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rows, 1)
}

func TestInjectAll(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewStore(filepath.Join(t.TempDir(), "ledger.csv"), ledger.WithLocation(time.UTC))
	in := NewInjector(newGenerator(t), store, zerolog.Nop())

	rows, err := in.InjectAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Netflix", rows[0].Merchant)
	assert.Equal(t, "Netflix", rows[1].Merchant)
	assert.Equal(t, "Amazon", rows[2].Merchant)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
