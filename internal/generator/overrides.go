package generator

import (
	"strings"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/shopspring/decimal"
)

// Field is an optional value that records whether the caller supplied it.
// The zero Field is unset.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get returns the value and whether it was supplied.
func (f Field[T]) Get() (T, bool) { return f.value, f.set }

// IsSet reports whether the caller supplied a value.
func (f Field[T]) IsSet() bool { return f.set }

// Overrides forces some fields of a generated transaction; unset fields are
// drawn from the catalog. The zero value forces nothing.
type Overrides struct {
	Category Field[string]
	Merchant Field[string]
	Amount   Field[decimal.Decimal]
}

// Force starts an empty override set, for chaining.
func Force() Overrides { return Overrides{} }

// WithCategory forces the category.
func (o Overrides) WithCategory(category string) Overrides {
	o.Category = Set(category)
	return o
}

// WithMerchant forces the merchant.
func (o Overrides) WithMerchant(merchant string) Overrides {
	o.Merchant = Set(merchant)
	return o
}

// WithAmount forces the amount.
func (o Overrides) WithAmount(amount decimal.Decimal) Overrides {
	o.Amount = Set(amount)
	return o
}

// IsEmpty reports whether nothing is forced.
func (o Overrides) IsEmpty() bool {
	return !o.Category.IsSet() && !o.Merchant.IsSet() && !o.Amount.IsSet()
}

// Validate rejects forced values that could never make a valid record.
func (o Overrides) Validate() error {
	if v, ok := o.Category.Get(); ok && strings.TrimSpace(v) == "" {
		return &domain.ValidationError{Field: "category", Reason: "forced value must not be empty"}
	}
	if v, ok := o.Merchant.Get(); ok && strings.TrimSpace(v) == "" {
		return &domain.ValidationError{Field: "merchant", Reason: "forced value must not be empty"}
	}
	if v, ok := o.Amount.Get(); ok && v.IsNegative() {
		return &domain.ValidationError{Field: "amount", Reason: "forced value must be non-negative, got " + v.String()}
	}
	return nil
}
