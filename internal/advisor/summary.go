// Package advisor turns a ledger snapshot into a short spending summary and
// asks a generative model for coaching advice on it.
package advisor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrEmptyLedger is returned when there is nothing to summarise.
var ErrEmptyLedger = errors.New("please add some transactions first")

// Currency prefixes amounts in the prompt.
const Currency = "₹"

// Summary is the compact view of a ledger handed to the model.
type Summary struct {
	TotalSpend        decimal.Decimal    `json:"total_spend"`
	AverageDailySpend decimal.Decimal    `json:"average_daily_spend"`
	Latest            domain.Transaction `json:"latest"`
	Alerts            []string           `json:"alerts"`
	Transactions      int                `json:"transactions"`
	Days              int                `json:"days"`
}

// Summarize computes the totals over ledger. The average daily spend is the
// mean of per-calendar-day totals. Amounts are rounded to two places.
func Summarize(ledger domain.Ledger, found []alerts.Alert) (Summary, error) {
	latest, ok := ledger.Latest()
	if !ok {
		return Summary{}, ErrEmptyLedger
	}

	daily := make(map[time.Time]decimal.Decimal)
	for _, tx := range ledger {
		d := tx.Day()
		daily[d] = daily[d].Add(tx.Amount)
	}
	sum := decimal.Zero
	for _, v := range daily {
		sum = sum.Add(v)
	}

	return Summary{
		TotalSpend:        ledger.Total().Round(2),
		AverageDailySpend: sum.Div(decimal.NewFromInt(int64(len(daily)))).Round(2),
		Latest:            latest,
		Alerts:            alerts.Messages(found),
		Transactions:      len(ledger),
		Days:              len(daily),
	}, nil
}

// BuildPrompt renders the coaching prompt for s.
func BuildPrompt(s Summary) string {
	alertLine := "None"
	if len(s.Alerts) > 0 {
		alertLine = strings.Join(s.Alerts, ", ")
	}

	var b strings.Builder
	b.WriteString("You are an empathetic personal finance coach.\n")
	b.WriteString("Here is the user's transaction summary:\n")
	fmt.Fprintf(&b, "- Total spend: %s%s\n", Currency, s.TotalSpend.StringFixed(2))
	fmt.Fprintf(&b, "- Average daily spend: %s%s\n", Currency, s.AverageDailySpend.StringFixed(2))
	fmt.Fprintf(&b, "- Last transaction: %s%s at %s (%s)\n", Currency, s.Latest.Amount.String(), s.Latest.Merchant, s.Latest.Category)
	fmt.Fprintf(&b, "Alerts: %s\n\n", alertLine)
	b.WriteString("Look at the spending pattern and reply in under 200 words with:\n")
	b.WriteString("- one tip to optimise spending\n")
	b.WriteString("- one saving strategy\n")
	b.WriteString("- one short motivational line\n")
	b.WriteString("Keep the tone friendly and practical.\n")
	return b.String()
}
