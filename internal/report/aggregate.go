// Package report renders ledger aggregates as PNG charts, console tables and
// XLSX workbooks.
package report

import (
	"errors"
	"sort"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNoData is returned when there is nothing to render.
var ErrNoData = errors.New("no transactions to report")

// MonthLayout labels monthly buckets.
const MonthLayout = "2006-01"

// Bucket is one labelled spend total.
type Bucket struct {
	Label string
	Total decimal.Decimal
	Count int
}

// MonthlySpend totals spend per calendar month, oldest first.
func MonthlySpend(l domain.Ledger) []Bucket {
	buckets := group(l, func(tx domain.Transaction) string {
		return tx.Timestamp.Format(MonthLayout)
	})
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Label < buckets[j].Label })
	return buckets
}

// CategorySpend totals spend per category, largest first. Equal totals are
// ordered by name.
func CategorySpend(l domain.Ledger) []Bucket {
	buckets := group(l, func(tx domain.Transaction) string { return tx.Category })
	sort.Slice(buckets, func(i, j int) bool {
		if c := buckets[i].Total.Cmp(buckets[j].Total); c != 0 {
			return c > 0
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

func group(l domain.Ledger, key func(domain.Transaction) string) []Bucket {
	index := make(map[string]int)
	var out []Bucket
	for _, tx := range l {
		k := key(tx)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Bucket{Label: k, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
		out[i].Count++
	}
	return out
}
