package report

import (
	"io"
	"strconv"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/olekukonko/tablewriter"
)

// WriteLedgerTable prints the ledger with a total footer.
func WriteLedgerTable(w io.Writer, l domain.Ledger) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(domain.Columns)
	for _, tx := range l {
		table.Append([]string{
			tx.Timestamp.Format(ledger.TimestampLayout),
			tx.Merchant,
			tx.Category,
			tx.Amount.StringFixed(2),
			tx.PaymentMethod,
			tx.AccountBalance.StringFixed(2),
		})
	}
	table.SetFooter([]string{"", "", "Total", l.Total().StringFixed(2), "", ""})
	table.Render()
}

// WriteAlertsTable prints the alerts, or a single all-clear row.
func WriteAlertsTable(w io.Writer, found []alerts.Alert) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Message"})
	table.SetAutoWrapText(false)
	if len(found) == 0 {
		table.Append([]string{alerts.StatusClear, "No financial anomalies detected"})
	}
	for _, a := range found {
		table.Append([]string{string(a.Kind), a.Message})
	}
	table.Render()
}

// WriteBucketsTable prints labelled totals under the given label header.
func WriteBucketsTable(w io.Writer, label string, buckets []Bucket) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{label, "Transactions", "Total"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, b := range buckets {
		table.Append([]string{b.Label, strconv.Itoa(b.Count), b.Total.StringFixed(2)})
	}
	table.Render()
}
