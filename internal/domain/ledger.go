package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger is an in-memory snapshot of the persisted transactions. Snapshots
// returned by the ledger store are sorted ascending by timestamp and owned
// by the caller.
type Ledger []Transaction

// Len returns the number of transactions.
func (l Ledger) Len() int { return len(l) }

// Total sums every amount in the ledger.
func (l Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range l {
		total = total.Add(tx.Amount)
	}
	return total
}

// Latest returns the most recent transaction. ok is false for an empty ledger.
func (l Ledger) Latest() (tx Transaction, ok bool) {
	if len(l) == 0 {
		return Transaction{}, false
	}
	latest := l[0]
	for _, t := range l[1:] {
		if !t.Timestamp.Before(latest.Timestamp) {
			latest = t
		}
	}
	return latest, true
}

// Clone returns a copy that can be mutated without affecting l.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// SortByTime orders the ledger ascending by timestamp. Rows sharing a
// timestamp keep their relative order.
func (l Ledger) SortByTime() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Timestamp.Before(l[j].Timestamp)
	})
}

// MeanBalance averages AccountBalance across the ledger. ok is false for an
// empty ledger.
func (l Ledger) MeanBalance() (mean decimal.Decimal, ok bool) {
	if len(l) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, tx := range l {
		sum = sum.Add(tx.AccountBalance)
	}
	return sum.Div(decimal.NewFromInt(int64(len(l)))), true
}

// OpeningBalance is assumed for manual entries into an empty ledger.
var OpeningBalance = decimal.NewFromInt(50000)

// SuggestedBalance is the balance recorded for a manual entry that does not
// state one: the mean balance so far (or OpeningBalance when empty) minus
// amount, floored at zero.
func (l Ledger) SuggestedBalance(amount decimal.Decimal) decimal.Decimal {
	base, ok := l.MeanBalance()
	if !ok {
		base = OpeningBalance
	}
	return decimal.Max(decimal.Zero, base.Sub(amount))
}
