package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
)

// ErrUnknownCategory is returned when an override forces a category that the
// catalog has no merchants for and does not force a merchant as well.
var ErrUnknownCategory = errors.New("category not in catalog")

// Generator produces synthetic transactions from a catalog. It is safe for
// concurrent use.
type Generator struct {
	catalog Catalog
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand supplies the random source, e.g. a seeded one for reproducible runs.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithSeed seeds a deterministic random source.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithClock replaces time.Now as the default timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New builds a generator over a private copy of catalog.
func New(catalog Catalog, opts ...Option) (*Generator, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		catalog: catalog.clone(),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Catalog returns a copy of the catalog in use.
func (g *Generator) Catalog() Catalog { return g.catalog.clone() }

// Now returns the generator's notion of the current instant.
func (g *Generator) Now() time.Time { return g.now() }

// Generate builds one transaction at the given instant (the zero time means
// now). Forced fields are used verbatim; the rest are drawn independently
// from the catalog. Timestamps are truncated to whole seconds, the
// resolution of the ledger file.
func (g *Generator) Generate(at time.Time, o Overrides) (domain.Transaction, error) {
	if err := o.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	if at.IsZero() {
		at = g.now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	category, forcedCategory := o.Category.Get()
	var entry CategorySpec
	var known bool
	if forcedCategory {
		entry, known = g.catalog.Lookup(category)
	} else {
		entry = g.catalog.Categories[g.rng.IntN(len(g.catalog.Categories))]
		category, known = entry.Name, true
	}

	merchant, ok := o.Merchant.Get()
	if !ok {
		if !known {
			return domain.Transaction{}, fmt.Errorf("Generate: %w: %q", ErrUnknownCategory, category)
		}
		merchant = entry.Merchants[g.rng.IntN(len(entry.Merchants))]
	}

	amount, ok := o.Amount.Get()
	if !ok {
		rule := g.catalog.Fallback
		if known {
			rule = entry.Amount
		}
		amount = rule.draw(g.rng)
	}

	return domain.Transaction{
		Timestamp:      at.Truncate(time.Second),
		Merchant:       merchant,
		Category:       category,
		Amount:         amount,
		PaymentMethod:  g.catalog.PaymentMethods[g.rng.IntN(len(g.catalog.PaymentMethods))],
		AccountBalance: g.catalog.Balance.draw(g.rng),
	}, nil
}

// Random is Generate with no overrides.
func (g *Generator) Random(at time.Time) domain.Transaction {
	// Without overrides every field comes from a validated catalog, so
	// Generate cannot fail.
	tx, _ := g.Generate(at, Overrides{})
	return tx
}

// intBetween returns a uniform integer in [lo, hi].
func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rng.IntN(hi-lo+1)
}
