package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/google/uuid"
)

// SourceLedger tags rows mirrored from the CSV ledger.
const SourceLedger = "vaultmind-ledger"

// rowNamespace seeds the deterministic transaction IDs.
var rowNamespace = uuid.MustParse("5b1f0c1e-7a52-4d0b-9a55-2f0f6f3c8e21")

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date     `bigquery:"transaction_date"` // REQUIRED
	BookingDatetime civil.DateTime `bigquery:"booking_datetime"` // REQUIRED

	Merchant      string `bigquery:"merchant"`       // REQUIRED STRING
	Category      string `bigquery:"category"`       // REQUIRED STRING
	PaymentMethod string `bigquery:"payment_method"` // REQUIRED STRING

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC
	Currency     string   `bigquery:"currency"`      // REQUIRED STRING
	BalanceAfter *big.Rat `bigquery:"balance_after"` // REQUIRED NUMERIC

	Source    string    `bigquery:"source"`     // REQUIRED STRING
	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// TransactionID derives a stable ID from the row contents, so mirroring the
// same ledger row twice yields the same ID.
func TransactionID(tx domain.Transaction) string {
	key := tx.Timestamp.Format(ledger.TimestampLayout) + "|" +
		tx.Merchant + "|" +
		tx.Category + "|" +
		tx.Amount.String() + "|" +
		tx.PaymentMethod + "|" +
		tx.AccountBalance.String()
	return uuid.NewSHA1(rowNamespace, []byte(key)).String()
}

// ToRow maps a ledger transaction onto the warehouse schema. Date and
// datetime columns keep the ledger's wall-clock time.
func ToRow(tx domain.Transaction, currency string, now time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID:   TransactionID(tx),
		TransactionDate: civil.DateOf(tx.Timestamp),
		BookingDatetime: civil.DateTimeOf(tx.Timestamp),
		Merchant:        tx.Merchant,
		Category:        tx.Category,
		PaymentMethod:   tx.PaymentMethod,
		Amount:          tx.Amount.Rat(),
		Currency:        currency,
		BalanceAfter:    tx.AccountBalance.Rat(),
		Source:          SourceLedger,
		CreatedTS:       now.UTC(),
	}
}
