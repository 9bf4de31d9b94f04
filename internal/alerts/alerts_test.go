package alerts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday of ISO week 24.
var now = time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)

func tx(ts time.Time, category, merchant string, amount int64) domain.Transaction {
	return domain.Transaction{
		Timestamp:      ts,
		Merchant:       merchant,
		Category:       category,
		Amount:         decimal.NewFromInt(amount),
		PaymentMethod:  "UPI",
		AccountBalance: decimal.NewFromInt(40000),
	}
}

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func kinds(alerts []Alert) []Kind {
	out := make([]Kind, len(alerts))
	for i, a := range alerts {
		out[i] = a.Kind
	}
	return out
}

func ofKind(alerts []Alert, k Kind) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Kind == k {
			out = append(out, a)
		}
	}
	return out
}

func TestEvaluate_EmptyLedgerIsClear(t *testing.T) {
	got := Evaluate(domain.Ledger{}, now)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, StatusClear, Status(got))

	got = Evaluate(nil, now)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWeeklySpike(t *testing.T) {
	tests := []struct {
		name      string
		ledger    domain.Ledger
		wantFire  bool
		wantTotal string
	}{
		{
			// Weekly totals 2000 (week 2) and 12000 (week 24): mean 7000,
			// threshold 10500.
			name: "trailing 12000 over 7000 mean fires",
			ledger: domain.Ledger{
				tx(day(2024, 1, 10, 9), "Groceries", "D-Mart", 2000),
				tx(day(2024, 6, 10, 9), "Groceries", "D-Mart", 6000),
				tx(day(2024, 6, 11, 9), "Dining", "Dominos", 6000),
			},
			wantFire:  true,
			wantTotal: "12000",
		},
		{
			// Weekly totals 4000 and 10000: mean 7000, threshold 10500.
			name: "trailing 10000 over 7000 mean is silent",
			ledger: domain.Ledger{
				tx(day(2024, 1, 10, 9), "Groceries", "D-Mart", 4000),
				tx(day(2024, 6, 10, 9), "Groceries", "D-Mart", 5000),
				tx(day(2024, 6, 11, 9), "Dining", "Dominos", 5000),
			},
			wantFire: false,
		},
		{
			name: "single week never exceeds its own total",
			ledger: domain.Ledger{
				tx(day(2024, 6, 10, 9), "Groceries", "D-Mart", 90000),
				tx(day(2024, 6, 11, 9), "Dining", "Dominos", 90000),
			},
			wantFire: false,
		},
		{
			name: "empty trailing window is silent",
			ledger: domain.Ledger{
				tx(day(2024, 1, 10, 9), "Groceries", "D-Mart", 10),
				tx(day(2024, 3, 10, 9), "Groceries", "D-Mart", 100000),
			},
			wantFire: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ofKind(Evaluate(tt.ledger, now), KindWeeklySpike)
			if !tt.wantFire {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantTotal, got[0].Amount.String())
			assert.Contains(t, got[0].Message, tt.wantTotal)
		})
	}
}

func TestWeeklySpike_WindowLowerBoundIsExclusive(t *testing.T) {
	cutoff := now.Add(-7 * 24 * time.Hour)
	ledger := domain.Ledger{
		tx(day(2024, 1, 10, 9), "Groceries", "D-Mart", 100),
		tx(cutoff, "Groceries", "D-Mart", 100000),
	}
	assert.Empty(t, ofKind(Evaluate(ledger, now), KindWeeklySpike))

	ledger[1].Timestamp = cutoff.Add(time.Second)
	assert.Len(t, ofKind(Evaluate(ledger, now), KindWeeklySpike), 1)
}

func TestWeeklySpike_MessageTruncatesFraction(t *testing.T) {
	ledger := domain.Ledger{
		tx(day(2024, 1, 10, 9), "Groceries", "D-Mart", 10),
		{Timestamp: day(2024, 6, 11, 9), Merchant: "Amazon", Category: "Groceries", Amount: decimal.RequireFromString("25000.99")},
	}
	got := ofKind(Evaluate(ledger, now), KindWeeklySpike)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "₹25000 ")
	assert.Equal(t, "25000.99", got[0].Amount.String())
}

func TestTopCategory(t *testing.T) {
	sevenOf := func(category string) domain.Ledger {
		var l domain.Ledger
		for i := 0; i < 7; i++ {
			l = append(l, tx(day(2024, 5, 1, 10+i), category, "Somewhere", 100))
		}
		return l
	}

	t.Run("watched category fires", func(t *testing.T) {
		got := ofKind(Evaluate(sevenOf("Shopping"), now), KindTopCategory)
		require.Len(t, got, 1)
		assert.Equal(t, "Shopping", got[0].Category)
		assert.Equal(t, "700", got[0].Amount.String())
		assert.Contains(t, got[0].Message, "Shopping")
	})

	t.Run("case is ignored against the watch list", func(t *testing.T) {
		got := ofKind(Evaluate(sevenOf("ENTERTAINMENT"), now), KindTopCategory)
		require.Len(t, got, 1)
		assert.Equal(t, "ENTERTAINMENT", got[0].Category)
	})

	t.Run("unwatched category is silent", func(t *testing.T) {
		assert.Empty(t, Evaluate(sevenOf("Groceries"), now))
	})

	t.Run("only the maximum is considered", func(t *testing.T) {
		ledger := append(sevenOf("Rent"), tx(day(2024, 5, 2, 9), "Shopping", "Amazon", 600))
		assert.Empty(t, ofKind(Evaluate(ledger, now), KindTopCategory))
	})

	t.Run("ties go to the lexically first category", func(t *testing.T) {
		ledger := domain.Ledger{
			tx(day(2024, 5, 1, 9), "Shopping", "Amazon", 500),
			tx(day(2024, 5, 1, 10), "Food", "Dominos", 500),
		}
		got := ofKind(Evaluate(ledger, now), KindTopCategory)
		require.Len(t, got, 1)
		assert.Equal(t, "Food", got[0].Category)
	})
}

func TestDuplicateSubscription(t *testing.T) {
	t.Run("pair on one day yields one alert", func(t *testing.T) {
		ledger := domain.Ledger{
			tx(day(2024, 6, 1, 9), "Subscriptions", "Netflix", 499),
			tx(day(2024, 6, 1, 18), "Subscriptions", "Netflix", 199),
		}
		got := ofKind(Evaluate(ledger, now), KindDuplicateSubscription)
		require.Len(t, got, 1)
		assert.Equal(t, "Netflix", got[0].Merchant)
		assert.Equal(t, "2024-06-01", got[0].Day)
		assert.Equal(t, 2, got[0].Count)
		assert.Contains(t, got[0].Message, "Netflix")
		assert.Contains(t, got[0].Message, "2024-06-01")
	})

	t.Run("third row in the group still yields one alert", func(t *testing.T) {
		ledger := domain.Ledger{
			tx(day(2024, 6, 1, 9), "Subscriptions", "Netflix", 499),
			tx(day(2024, 6, 1, 10), "subscriptions", "Netflix", 499),
			tx(day(2024, 6, 1, 11), "SUBSCRIPTIONS", "Netflix", 499),
		}
		got := ofKind(Evaluate(ledger, now), KindDuplicateSubscription)
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].Count)
	})

	t.Run("different days or merchants are not duplicates", func(t *testing.T) {
		ledger := domain.Ledger{
			tx(day(2024, 6, 1, 9), "Subscriptions", "Netflix", 499),
			tx(day(2024, 6, 2, 9), "Subscriptions", "Netflix", 499),
			tx(day(2024, 6, 1, 9), "Subscriptions", "Spotify", 199),
			tx(day(2024, 6, 1, 9), "Shopping", "Netflix", 499),
		}
		assert.Empty(t, ofKind(Evaluate(ledger, now), KindDuplicateSubscription))
	})

	t.Run("groups are ordered by merchant then day", func(t *testing.T) {
		ledger := domain.Ledger{
			tx(day(2024, 6, 3, 9), "Subscriptions", "Spotify", 199),
			tx(day(2024, 6, 3, 9), "Subscriptions", "Spotify", 199),
			tx(day(2024, 6, 2, 9), "Subscriptions", "Netflix", 499),
			tx(day(2024, 6, 2, 9), "Subscriptions", "Netflix", 499),
			tx(day(2024, 6, 1, 9), "Subscriptions", "Spotify", 199),
			tx(day(2024, 6, 1, 9), "Subscriptions", "Spotify", 199),
		}
		got := ofKind(Evaluate(ledger, now), KindDuplicateSubscription)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"Netflix", "Spotify", "Spotify"}, []string{got[0].Merchant, got[1].Merchant, got[2].Merchant})
		assert.Equal(t, []string{"2024-06-02", "2024-06-01", "2024-06-03"}, []string{got[0].Day, got[1].Day, got[2].Day})
	})
}

func TestEvaluate_DetectorOrder(t *testing.T) {
	ledger := domain.Ledger{
		tx(day(2024, 1, 10, 9), "Groceries", "D-Mart", 100),
		tx(day(2024, 6, 11, 9), "Subscriptions", "Netflix", 499),
		tx(day(2024, 6, 11, 10), "Subscriptions", "Netflix", 499),
		tx(day(2024, 6, 11, 11), "Shopping", "Amazon", 25000),
	}
	got := Evaluate(ledger, now)
	assert.Equal(t, []Kind{KindWeeklySpike, KindTopCategory, KindDuplicateSubscription}, kinds(got))
	assert.Equal(t, StatusAttention, Status(got))
	assert.Len(t, Messages(got), 3)
}

func TestNewEngine_CustomConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WatchList = []string{" Groceries "}
	cfg.SubscriptionCategory = "Streaming"
	e := NewEngine(cfg)

	ledger := domain.Ledger{
		tx(day(2024, 5, 1, 9), "Groceries", "D-Mart", 900),
		tx(day(2024, 5, 1, 10), "streaming", "Netflix", 100),
		tx(day(2024, 5, 1, 11), "Streaming", "Netflix", 100),
	}
	assert.Equal(t, []Kind{KindTopCategory, KindDuplicateSubscription}, kinds(e.Evaluate(ledger, now)))
}

func TestAlert_JSON(t *testing.T) {
	a := Alert{Kind: KindDuplicateSubscription, Message: "m", Amount: decimal.NewFromInt(998), Merchant: "Netflix", Day: "2024-06-01", Count: 2}
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"duplicate_subscription","message":"m","amount":"998","merchant":"Netflix","day":"2024-06-01","count":2}`, string(b))
}
