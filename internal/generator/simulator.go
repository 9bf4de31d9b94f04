package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/rs/zerolog"
)

// Script is a named sequence of forced rows appended together, used to
// reproduce a specific anomaly on demand.
type Script struct {
	Name string
	Rows []Overrides
}

// SimulatorConfig controls the streaming loop.
type SimulatorConfig struct {
	// SeedDays of history are generated before streaming starts.
	SeedDays int
	// MaxPerDay bounds the random 1..MaxPerDay rows seeded per historical day.
	MaxPerDay int
	// Interval is the pause between streamed transactions.
	Interval time.Duration
	// MaxIterations stops the loop after that many steps; 0 streams until cancelled.
	MaxIterations int
	// Scripts replaces the random row at the given 1-based iteration.
	Scripts map[int]Script
}

// DefaultSimulatorConfig matches the demo setup: a month of history, then a
// row every five seconds. Scripted steps are wired in by the caller.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		SeedDays:  30,
		MaxPerDay: 3,
		Interval:  5 * time.Second,
	}
}

// Simulator seeds history and then streams generated transactions into the
// ledger at a fixed interval.
type Simulator struct {
	gen   *Generator
	store ledger.Appender
	cfg   SimulatorConfig
	log   zerolog.Logger
}

// NewSimulator wires a simulator. The logger may be zerolog.Nop().
func NewSimulator(gen *Generator, store ledger.Appender, cfg SimulatorConfig, log zerolog.Logger) (*Simulator, error) {
	if cfg.SeedDays < 0 {
		return nil, fmt.Errorf("NewSimulator: negative seed days %d", cfg.SeedDays)
	}
	if cfg.SeedDays > 0 && cfg.MaxPerDay < 1 {
		return nil, fmt.Errorf("NewSimulator: max per day must be at least 1, got %d", cfg.MaxPerDay)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("NewSimulator: negative interval %s", cfg.Interval)
	}
	return &Simulator{gen: gen, store: store, cfg: cfg, log: log}, nil
}

// Seed appends SeedDays of history ending yesterday, 1..MaxPerDay rows per
// day at the current time of day. It returns the number of rows written.
// Cancellation is checked between rows, never during one.
func (s *Simulator) Seed(ctx context.Context) (int, error) {
	start := s.gen.Now().AddDate(0, 0, -s.cfg.SeedDays)
	written := 0
	for d := 0; d < s.cfg.SeedDays; d++ {
		day := start.AddDate(0, 0, d)
		n := s.gen.intBetween(1, s.cfg.MaxPerDay)
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			if err := s.store.Append(ctx, s.gen.Random(day)); err != nil {
				return written, fmt.Errorf("Seed: %w", err)
			}
			written++
		}
	}
	s.log.Info().Int("days", s.cfg.SeedDays).Int("rows", written).Msg("Seeded ledger history")
	return written, nil
}

// Run seeds history and then streams until ctx is cancelled or
// MaxIterations is reached. Cancellation is a clean stop and returns nil;
// storage failures are returned.
func (s *Simulator) Run(ctx context.Context) error {
	if _, err := s.Seed(ctx); err != nil {
		if ctx.Err() != nil {
			s.log.Info().Msg("Simulator stopped during seeding")
			return nil
		}
		return err
	}

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("Streaming transactions")

	for counter := 1; ; counter++ {
		if ctx.Err() != nil {
			s.log.Info().Int("iterations", counter-1).Msg("Simulator stopped")
			return nil
		}

		if err := s.step(ctx, counter); err != nil {
			return err
		}

		if s.cfg.MaxIterations > 0 && counter >= s.cfg.MaxIterations {
			s.log.Info().Int("iterations", counter).Msg("Simulator finished")
			return nil
		}

		wait := time.NewTimer(s.cfg.Interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			s.log.Info().Int("iterations", counter).Msg("Simulator stopped")
			return nil
		case <-wait.C:
		}
	}
}

// step appends the rows of one iteration. Once started, an iteration is
// completed even if ctx is cancelled meanwhile, so a scripted pair is never
// left half written.
func (s *Simulator) step(ctx context.Context, counter int) error {
	ctx = context.WithoutCancel(ctx)
	script, scripted := s.cfg.Scripts[counter]
	if !scripted {
		tx := s.gen.Random(time.Time{})
		if err := s.store.Append(ctx, tx); err != nil {
			return fmt.Errorf("Run: iteration %d: %w", counter, err)
		}
		logRow(s.log.Debug(), tx).Int("iteration", counter).Msg("Streamed transaction")
		return nil
	}

	// Generate every row first so an invalid script appends nothing.
	rows := make([]domain.Transaction, 0, len(script.Rows))
	for _, o := range script.Rows {
		tx, err := s.gen.Generate(time.Time{}, o)
		if err != nil {
			return fmt.Errorf("Run: script %q: %w", script.Name, err)
		}
		rows = append(rows, tx)
	}
	for _, tx := range rows {
		if err := s.store.Append(ctx, tx); err != nil {
			return fmt.Errorf("Run: script %q: %w", script.Name, err)
		}
	}
	s.log.Info().Str("script", script.Name).Int("rows", len(rows)).Int("iteration", counter).Msg("Injected scripted transactions")
	return nil
}

func logRow(e *zerolog.Event, tx domain.Transaction) *zerolog.Event {
	return e.
		Time("date", tx.Timestamp).
		Str("merchant", tx.Merchant).
		Str("category", tx.Category).
		Str("amount", tx.Amount.String())
}
