// Package scenario holds the named anomaly scripts used to demonstrate the
// alert detectors, and an injector that appends them to a ledger on demand.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/generator"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrUnknownScenario is returned for a name that is not a built-in scenario.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is a named list of forced rows.
type Scenario = generator.Script

const (
	DuplicateSubscriptionName = "duplicate-subscription"
	SpendingSpikeName         = "spending-spike"
)

// DuplicateSubscription appends the same Netflix charge twice on one day.
func DuplicateSubscription() Scenario {
	netflix := generator.Force().
		WithCategory("Subscriptions").
		WithMerchant("Netflix").
		WithAmount(decimal.NewFromInt(499))
	return Scenario{Name: DuplicateSubscriptionName, Rows: []generator.Overrides{netflix, netflix}}
}

// SpendingSpike appends one large shopping purchase.
func SpendingSpike() Scenario {
	return Scenario{Name: SpendingSpikeName, Rows: []generator.Overrides{
		generator.Force().
			WithCategory("Shopping").
			WithMerchant("Amazon").
			WithAmount(decimal.NewFromInt(25000)),
	}}
}

// All returns the built-in scenarios in injection order.
func All() []Scenario {
	return []Scenario{DuplicateSubscription(), SpendingSpike()}
}

// Names lists the built-in scenario names in injection order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Lookup resolves a scenario by name. Underscores and case are ignored so
// "DUPLICATE_SUBSCRIPTION" works from a shell.
func Lookup(name string) (Scenario, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for _, s := range All() {
		if s.Name == key {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownScenario, name, strings.Join(Names(), ", "))
}

// DefaultScripts schedules the built-ins into the streaming loop: the
// duplicate charge at iteration 5 and the spike at iteration 12.
func DefaultScripts() map[int]Scenario {
	return map[int]Scenario{
		5:  DuplicateSubscription(),
		12: SpendingSpike(),
	}
}

// Injector appends scenarios to a ledger.
type Injector struct {
	gen   *generator.Generator
	store ledger.Appender
	log   zerolog.Logger
}

// NewInjector wires an injector. The logger may be zerolog.Nop().
func NewInjector(gen *generator.Generator, store ledger.Appender, log zerolog.Logger) *Injector {
	return &Injector{gen: gen, store: store, log: log}
}

// Inject generates every row of the named scenario at the current instant
// and appends them in order. Nothing is appended when the name is unknown or
// a row fails to generate. Storage faults are returned along with the rows
// already written.
func (in *Injector) Inject(ctx context.Context, name string) ([]domain.Transaction, error) {
	s, err := Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("Inject: %w", err)
	}

	rows := make([]domain.Transaction, 0, len(s.Rows))
	for _, o := range s.Rows {
		tx, err := in.gen.Generate(time.Time{}, o)
		if err != nil {
			return nil, fmt.Errorf("Inject: %s: %w", s.Name, err)
		}
		rows = append(rows, tx)
	}

	for i, tx := range rows {
		if err := in.store.Append(ctx, tx); err != nil {
			return rows[:i], fmt.Errorf("Inject: %s: append row %d: %w", s.Name, i+1, err)
		}
	}

	in.log.Info().Str("scenario", s.Name).Int("rows", len(rows)).Msg("Injected scenario")
	return rows, nil
}

// InjectAll injects every built-in scenario in order and returns all rows
// written.
func (in *Injector) InjectAll(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, name := range Names() {
		rows, err := in.Inject(ctx, name)
		out = append(out, rows...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
