package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func tx(ts time.Time, category, merchant, amount string) domain.Transaction {
	return domain.Transaction{
		Timestamp:      ts,
		Merchant:       merchant,
		Category:       category,
		Amount:         decimal.RequireFromString(amount),
		PaymentMethod:  "UPI",
		AccountBalance: decimal.NewFromInt(40000),
	}
}

func sampleLedger() domain.Ledger {
	return domain.Ledger{
		tx(time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC), "Food", "Swiggy", "450.50"),
		tx(time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC), "Shopping", "Amazon", "3200"),
		tx(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), "Subscription", "Netflix", "649"),
		tx(time.Date(2024, 6, 2, 13, 0, 0, 0, time.UTC), "Food", "Zomato", "300"),
		tx(time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC), "Food", "Swiggy", "249.50"),
	}
}

func labels(buckets []Bucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Label
	}
	return out
}

func TestMonthlySpend(t *testing.T) {
	got := MonthlySpend(sampleLedger())

	require.Len(t, got, 2)
	assert.Equal(t, []string{"2024-05", "2024-06"}, labels(got))
	assert.True(t, decimal.RequireFromString("3650.50").Equal(got[0].Total), got[0].Total.String())
	assert.Equal(t, 2, got[0].Count)
	assert.True(t, decimal.NewFromInt(1198).Equal(got[1].Total), got[1].Total.String())
	assert.Equal(t, 3, got[1].Count)
}

func TestCategorySpend(t *testing.T) {
	got := CategorySpend(sampleLedger())

	assert.Equal(t, []string{"Shopping", "Food", "Subscription"}, labels(got))
	assert.True(t, decimal.NewFromInt(1000).Equal(got[1].Total), got[1].Total.String())
	assert.Equal(t, 3, got[1].Count)
}

func TestCategorySpend_TiesByName(t *testing.T) {
	ts := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	got := CategorySpend(domain.Ledger{
		tx(ts, "Travel", "Uber", "100"),
		tx(ts, "Food", "Swiggy", "100"),
	})
	assert.Equal(t, []string{"Food", "Travel"}, labels(got))
}

func TestAggregates_Empty(t *testing.T) {
	assert.Empty(t, MonthlySpend(nil))
	assert.Empty(t, CategorySpend(domain.Ledger{}))
}

func TestRenderCharts(t *testing.T) {
	l := sampleLedger()

	tests := []struct {
		name   string
		render func(*bytes.Buffer) error
	}{
		{"monthly", func(buf *bytes.Buffer) error { return RenderMonthlyChart(buf, MonthlySpend(l), "₹") }},
		{"category", func(buf *bytes.Buffer) error { return RenderCategoryChart(buf, CategorySpend(l), "₹") }},
		{"single zero bar", func(buf *bytes.Buffer) error {
			return RenderMonthlyChart(buf, []Bucket{{Label: "2024-06", Total: decimal.Zero}}, "₹")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.render(&buf))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
		})
	}
}

func TestRenderCharts_NoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderMonthlyChart(&buf, nil, "₹"), ErrNoData)
	assert.ErrorIs(t, RenderCategoryChart(&buf, []Bucket{}, "₹"), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestWriteLedgerTable(t *testing.T) {
	var buf bytes.Buffer
	WriteLedgerTable(&buf, sampleLedger())

	out := buf.String()
	assert.Contains(t, out, "2024-06-01 08:00:00")
	assert.Contains(t, out, "Netflix")
	assert.Contains(t, out, "450.50")
	assert.Contains(t, out, "40000.00")
	assert.Contains(t, out, "4848.50")
}

func TestWriteAlertsTable(t *testing.T) {
	t.Run("clear", func(t *testing.T) {
		var buf bytes.Buffer
		WriteAlertsTable(&buf, nil)
		assert.Contains(t, buf.String(), "No financial anomalies detected")
	})

	t.Run("alerts", func(t *testing.T) {
		var buf bytes.Buffer
		WriteAlertsTable(&buf, []alerts.Alert{
			{Kind: alerts.KindTopCategory, Message: "Your top spending category is Food."},
		})
		out := buf.String()
		assert.Contains(t, out, string(alerts.KindTopCategory))
		assert.Contains(t, out, "Your top spending category is Food.")
		assert.NotContains(t, out, "No financial anomalies detected")
	})
}

func TestWriteBucketsTable(t *testing.T) {
	var buf bytes.Buffer
	WriteBucketsTable(&buf, "Month", MonthlySpend(sampleLedger()))

	out := buf.String()
	assert.Contains(t, out, "2024-05")
	assert.Contains(t, out, "3650.50")
	assert.Contains(t, out, "1198.00")
}

func TestWriteWorkbook(t *testing.T) {
	found := []alerts.Alert{
		{Kind: alerts.KindTopCategory, Message: "Your top spending category is Food.", Amount: decimal.NewFromInt(1000)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleLedger(), found))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{LedgerSheet, CategorySheet, AlertsSheet}, f.GetSheetList())

	rows, err := f.GetRows(LedgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, domain.Columns, rows[0])
	assert.Equal(t, []string{"2024-05-30 09:00:00", "Swiggy", "Food", "450.5", "UPI", "40000"}, rows[1])

	rows, err = f.GetRows(CategorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Shopping", "1", "3200"}, rows[1])

	rows, err = f.GetRows(AlertsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{string(alerts.KindTopCategory), "Your top spending category is Food.", "1000"}, rows[1])
}

func TestWriteWorkbook_EmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(LedgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Columns, rows[0])
}
