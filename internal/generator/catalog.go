package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountRule draws a transaction amount for one category. A rule with price
// points picks one of them uniformly; otherwise it draws uniformly from
// [Min, Max] rounded to two decimal places.
type AmountRule struct {
	PricePoints []decimal.Decimal
	Min, Max    float64
}

// PricePoints builds a rule over a fixed set of prices, e.g. subscription tiers.
func PricePoints(points ...int64) AmountRule {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = decimal.NewFromInt(p)
	}
	return AmountRule{PricePoints: out}
}

// FixedAmount always yields amount. Handy for deterministic test catalogs.
func FixedAmount(amount decimal.Decimal) AmountRule {
	return AmountRule{PricePoints: []decimal.Decimal{amount}}
}

// UniformRange draws from [min, max], rounded to cents.
func UniformRange(min, max float64) AmountRule {
	return AmountRule{Min: min, Max: max}
}

func (r AmountRule) draw(rng *rand.Rand) decimal.Decimal {
	if len(r.PricePoints) > 0 {
		return r.PricePoints[rng.IntN(len(r.PricePoints))]
	}
	v := r.Min + rng.Float64()*(r.Max-r.Min)
	return decimal.NewFromFloat(v).Round(2)
}

func (r AmountRule) validate() error {
	if len(r.PricePoints) > 0 {
		for _, p := range r.PricePoints {
			if p.IsNegative() {
				return fmt.Errorf("negative price point %s", p)
			}
		}
		return nil
	}
	if r.Min < 0 || r.Max < r.Min {
		return fmt.Errorf("bad range [%v, %v]", r.Min, r.Max)
	}
	return nil
}

// BalanceRule draws the illustrative account balance attached to each
// generated row. It is not a running balance.
type BalanceRule struct {
	// Normal selects a normal distribution (Mean, StdDev) clamped at zero;
	// otherwise the balance is uniform over [Min, Max].
	Normal       bool
	Mean, StdDev float64
	Min, Max     float64
}

// UniformBalance draws balances uniformly from [min, max].
func UniformBalance(min, max float64) BalanceRule {
	return BalanceRule{Min: min, Max: max}
}

// NormalBalance draws balances from N(mean, stddev), clamped at zero.
func NormalBalance(mean, stddev float64) BalanceRule {
	return BalanceRule{Normal: true, Mean: mean, StdDev: stddev}
}

func (r BalanceRule) draw(rng *rand.Rand) decimal.Decimal {
	var v float64
	if r.Normal {
		v = math.Max(0, r.Mean+rng.NormFloat64()*r.StdDev)
	} else {
		v = r.Min + rng.Float64()*(r.Max-r.Min)
	}
	return decimal.NewFromFloat(v).Round(2)
}

// CategorySpec lists the merchants and amount rule of one category.
type CategorySpec struct {
	Name      string
	Merchants []string
	Amount    AmountRule
}

// Catalog is the configuration table the generator draws from. The
// generator keeps its own deep copy, so a Catalog value may be reused or
// modified by the caller afterwards without effect.
type Catalog struct {
	Categories     []CategorySpec
	PaymentMethods []string
	// Fallback prices categories that are forced by an override but absent
	// from Categories.
	Fallback AmountRule
	Balance  BalanceRule
}

// Validate reports catalogs the generator cannot draw from.
func (c Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog: no categories")
	}
	if len(c.PaymentMethods) == 0 {
		return fmt.Errorf("catalog: no payment methods")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("catalog: category with empty name")
		}
		if seen[cat.Name] {
			return fmt.Errorf("catalog: duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
		if len(cat.Merchants) == 0 {
			return fmt.Errorf("catalog: category %q has no merchants", cat.Name)
		}
		if err := cat.Amount.validate(); err != nil {
			return fmt.Errorf("catalog: category %q: %w", cat.Name, err)
		}
	}
	if err := c.Fallback.validate(); err != nil {
		return fmt.Errorf("catalog: fallback: %w", err)
	}
	return nil
}

// Lookup finds a category by exact name.
func (c Catalog) Lookup(name string) (CategorySpec, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return CategorySpec{}, false
}

// CategoryNames lists the category names in catalog order.
func (c Catalog) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

func (c Catalog) clone() Catalog {
	out := Catalog{
		Categories:     make([]CategorySpec, len(c.Categories)),
		PaymentMethods: append([]string(nil), c.PaymentMethods...),
		Fallback:       c.Fallback.clone(),
		Balance:        c.Balance,
	}
	for i, cat := range c.Categories {
		out.Categories[i] = CategorySpec{
			Name:      cat.Name,
			Merchants: append([]string(nil), cat.Merchants...),
			Amount:    cat.Amount.clone(),
		}
	}
	return out
}

func (r AmountRule) clone() AmountRule {
	r.PricePoints = append([]decimal.Decimal(nil), r.PricePoints...)
	return r
}

var defaultPaymentMethods = []string{"Credit Card", "Debit Card", "UPI", "Wallet"}

// StreamCatalog is the catalog used by the live simulator.
func StreamCatalog() Catalog {
	other := UniformRange(50, 4000)
	return Catalog{
		Categories: []CategorySpec{
			{Name: "Groceries", Merchants: []string{"Big Bazaar", "Reliance Fresh", "D-Mart"}, Amount: other},
			{Name: "Subscriptions", Merchants: []string{"Netflix", "Spotify", "Prime"}, Amount: PricePoints(99, 199, 299, 499)},
			{Name: "Dining", Merchants: []string{"Dominos", "Cafe Coffee Day", "McDonald's"}, Amount: other},
			{Name: "Transport", Merchants: []string{"Uber", "Ola"}, Amount: other},
			{Name: "Shopping", Merchants: []string{"Amazon", "Flipkart"}, Amount: other},
		},
		PaymentMethods: append([]string(nil), defaultPaymentMethods...),
		Fallback:       other,
		Balance:        UniformBalance(10000, 80000),
	}
}

// HistoryCatalog is the richer catalog used to seed months of history.
func HistoryCatalog() Catalog {
	other := UniformRange(150, 5000)
	return Catalog{
		Categories: []CategorySpec{
			{Name: "Groceries", Merchants: []string{"Big Bazaar", "Reliance Fresh", "D-Mart", "More Supermarket"}, Amount: other},
			{Name: "Dining", Merchants: []string{"Dominos", "McDonald's", "Barbeque Nation", "Cafe Coffee Day"}, Amount: other},
			{Name: "Transport", Merchants: []string{"Uber", "Ola", "Rapido", "RedBus"}, Amount: UniformRange(100, 700)},
			{Name: "Subscriptions", Merchants: []string{"Netflix", "Spotify", "Amazon Prime", "Hotstar", "YouTube Premium"}, Amount: PricePoints(199, 299, 499, 899)},
			{Name: "Utilities", Merchants: []string{"Electricity Bill", "Water Bill", "Internet Bill", "Mobile Recharge"}, Amount: UniformRange(300, 1500)},
			{Name: "Shopping", Merchants: []string{"Amazon", "Flipkart", "Myntra", "Ajio"}, Amount: other},
			{Name: "Rent", Merchants: []string{"Apartment Rent"}, Amount: UniformRange(8000, 20000)},
			{Name: "Healthcare", Merchants: []string{"Pharmacy", "Doctor Visit", "Health Insurance"}, Amount: other},
			{Name: "Entertainment", Merchants: []string{"BookMyShow", "Gaming Purchase", "Theme Park"}, Amount: other},
		},
		PaymentMethods: append([]string(nil), defaultPaymentMethods...),
		Fallback:       other,
		Balance:        NormalBalance(50000, 15000),
	}
}

// CatalogByName resolves the catalog names accepted in configuration.
func CatalogByName(name string) (Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "stream":
		return StreamCatalog(), nil
	case "history":
		return HistoryCatalog(), nil
	default:
		return Catalog{}, fmt.Errorf("unknown catalog %q (want stream or history)", name)
	}
}
