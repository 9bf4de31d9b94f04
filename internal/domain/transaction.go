package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger record. Field order mirrors the backing file
// columns (see Columns).
type Transaction struct {
	Timestamp      time.Time       `json:"date"`
	Merchant       string          `json:"merchant"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	AccountBalance decimal.Decimal `json:"account_balance"`
}

// Columns is the fixed ledger schema, in file order.
var Columns = []string{"Date", "Merchant", "Category", "Amount", "Payment_Method", "Account_Balance"}

// ValidationError reports a transaction or override field that cannot be
// accepted. It is returned before anything is written to the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the fields a manually entered transaction must carry.
// The ledger store does not call it; appends are unchecked.
func (t Transaction) Validate() error {
	if t.Timestamp.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return &ValidationError{Field: "merchant", Reason: "must not be empty"}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("must be non-negative, got %s", t.Amount)}
	}
	if t.AccountBalance.IsNegative() {
		return &ValidationError{Field: "account_balance", Reason: fmt.Sprintf("must be non-negative, got %s", t.AccountBalance)}
	}
	return nil
}

// Day returns the calendar day of the transaction in its own location.
func (t Transaction) Day() time.Time {
	y, m, d := t.Timestamp.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Timestamp.Location())
}
