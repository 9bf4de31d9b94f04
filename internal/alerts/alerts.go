// Package alerts evaluates rule-based spending detectors over a ledger
// snapshot. Evaluation is pure: it reads the ledger and the supplied instant
// and nothing else.
package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/shopspring/decimal"
)

// Kind identifies the detector that raised an alert.
type Kind string

const (
	KindWeeklySpike           Kind = "weekly_spike"
	KindTopCategory           Kind = "top_category"
	KindDuplicateSubscription Kind = "duplicate_subscription"
)

// DayLayout formats Alert.Day.
const DayLayout = "2006-01-02"

// Alert is one detector finding. Only the detail fields relevant to Kind are
// populated.
type Alert struct {
	Kind     Kind            `json:"kind"`
	Message  string          `json:"message"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category,omitempty"`
	Merchant string          `json:"merchant,omitempty"`
	Day      string          `json:"day,omitempty"`
	Count    int             `json:"count,omitempty"`
}

// Status values summarising an alert list.
const (
	StatusClear     = "clear"
	StatusAttention = "attention"
)

// Status reports StatusClear for an empty list and StatusAttention otherwise.
func Status(alerts []Alert) string {
	if len(alerts) == 0 {
		return StatusClear
	}
	return StatusAttention
}

// Messages returns the alert messages in order.
func Messages(alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Message
	}
	return out
}

// Config holds the detector thresholds.
type Config struct {
	// SpikeMultiplier is how far trailing spend must exceed the mean weekly
	// total before the spike detector fires.
	SpikeMultiplier decimal.Decimal
	// TrailingWindow is the lookback of the spike detector. Rows strictly
	// after now-TrailingWindow are included.
	TrailingWindow time.Duration
	// WatchList holds lowercase category names the top-category detector
	// reports on.
	WatchList []string
	// SubscriptionCategory is the lowercase category checked for duplicates.
	SubscriptionCategory string
	// Currency prefixes amounts in messages.
	Currency string
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		SpikeMultiplier:      decimal.RequireFromString("1.5"),
		TrailingWindow:       7 * 24 * time.Hour,
		WatchList:            []string{"shopping", "food", "entertainment"},
		SubscriptionCategory: "subscriptions",
		Currency:             "₹",
	}
}

// Engine runs the detectors with a fixed configuration.
type Engine struct {
	cfg   Config
	watch map[string]bool
}

// NewEngine builds an engine. Watch-list entries and the subscription
// category are compared lowercase.
func NewEngine(cfg Config) *Engine {
	watch := make(map[string]bool, len(cfg.WatchList))
	for _, c := range cfg.WatchList {
		watch[strings.ToLower(strings.TrimSpace(c))] = true
	}
	cfg.SubscriptionCategory = strings.ToLower(strings.TrimSpace(cfg.SubscriptionCategory))
	return &Engine{cfg: cfg, watch: watch}
}

var defaultEngine = NewEngine(DefaultConfig())

// Evaluate runs the default engine.
func Evaluate(ledger domain.Ledger, now time.Time) []Alert {
	return defaultEngine.Evaluate(ledger, now)
}

// Evaluate runs the weekly spike, top category and duplicate subscription
// detectors in that order and concatenates their findings. The result is
// empty, never nil, when nothing fires.
func (e *Engine) Evaluate(ledger domain.Ledger, now time.Time) []Alert {
	out := make([]Alert, 0)
	if len(ledger) == 0 {
		return out
	}
	out = append(out, e.weeklySpike(ledger, now)...)
	out = append(out, e.topCategory(ledger)...)
	out = append(out, e.duplicateSubscriptions(ledger)...)
	return out
}

// weeklySpike compares spend in the trailing window against the mean of all
// weekly totals. Weeks are keyed by ISO week number alone, so the same week
// of different years shares a bucket, and the trailing rows are part of the
// baseline too.
func (e *Engine) weeklySpike(ledger domain.Ledger, now time.Time) []Alert {
	cutoff := now.Add(-e.cfg.TrailingWindow)

	weekly := make(map[int]decimal.Decimal)
	trailing := decimal.Zero
	recent := 0
	for _, tx := range ledger {
		_, week := tx.Timestamp.ISOWeek()
		weekly[week] = weekly[week].Add(tx.Amount)
		if tx.Timestamp.After(cutoff) {
			trailing = trailing.Add(tx.Amount)
			recent++
		}
	}
	if recent == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, total := range weekly {
		sum = sum.Add(total)
	}
	baseline := sum.Div(decimal.NewFromInt(int64(len(weekly))))
	if !trailing.GreaterThan(e.cfg.SpikeMultiplier.Mul(baseline)) {
		return nil
	}

	return []Alert{{
		Kind: KindWeeklySpike,
		Message: fmt.Sprintf("You spent %s%s last week, more than %sx your average week.",
			e.cfg.Currency, trailing.Truncate(0).String(), e.cfg.SpikeMultiplier.String()),
		Amount: trailing,
		Count:  recent,
	}}
}

// topCategory reports the highest-spend category when it is on the watch
// list. Ties go to the lexically smallest category name.
func (e *Engine) topCategory(ledger domain.Ledger) []Alert {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range ledger {
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	top := names[0]
	for _, name := range names[1:] {
		if totals[name].GreaterThan(totals[top]) {
			top = name
		}
	}
	if !e.watch[strings.ToLower(top)] {
		return nil
	}

	return []Alert{{
		Kind:     KindTopCategory,
		Message:  fmt.Sprintf("Your top spending category is %s. Consider setting a weekly limit.", top),
		Amount:   totals[top],
		Category: top,
	}}
}

type merchantDay struct {
	merchant string
	day      string
}

// duplicateSubscriptions emits one alert per (merchant, calendar day) with
// more than one subscription charge, ordered by merchant then day.
func (e *Engine) duplicateSubscriptions(ledger domain.Ledger) []Alert {
	counts := make(map[merchantDay]int)
	amounts := make(map[merchantDay]decimal.Decimal)
	var category string
	for _, tx := range ledger {
		if strings.ToLower(tx.Category) != e.cfg.SubscriptionCategory {
			continue
		}
		key := merchantDay{merchant: tx.Merchant, day: tx.Day().Format(DayLayout)}
		counts[key]++
		amounts[key] = amounts[key].Add(tx.Amount)
		if category == "" {
			category = tx.Category
		}
	}

	keys := make([]merchantDay, 0, len(counts))
	for k, n := range counts {
		if n > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].merchant != keys[j].merchant {
			return keys[i].merchant < keys[j].merchant
		}
		return keys[i].day < keys[j].day
	})

	var out []Alert
	for _, k := range keys {
		out = append(out, Alert{
			Kind:     KindDuplicateSubscription,
			Message:  fmt.Sprintf("Possible duplicate subscription payment detected for %s on %s.", k.merchant, k.day),
			Amount:   amounts[k],
			Category: category,
			Merchant: k.merchant,
			Day:      k.day,
			Count:    counts[k],
		})
	}
	return out
}
