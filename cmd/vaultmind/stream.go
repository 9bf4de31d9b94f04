package main

import (
	"fmt"
	"time"

	"github.com/dvloznov/vaultmind/internal/generator"
	"github.com/dvloznov/vaultmind/internal/scenario"
	"github.com/spf13/cobra"
)

func (a *app) newStreamCmd() *cobra.Command {
	var (
		interval    time.Duration
		iterations  int
		seedDays    int
		noScenarios bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Seed history, then append a generated transaction every interval",
		Long: `Seed appends one row per historical day (up to max_per_day) and then
streams one generated transaction per interval until interrupted. With
scenarios enabled, iteration 5 writes a duplicate subscription pair and
iteration 12 a spending spike.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			simCfg := a.cfg.SimulatorConfig()
			if cmd.Flags().Changed("interval") {
				simCfg.Interval = interval
			}
			if cmd.Flags().Changed("iterations") {
				simCfg.MaxIterations = iterations
			}
			if cmd.Flags().Changed("seed-days") {
				simCfg.SeedDays = seedDays
			}
			if a.cfg.Stream.Scenarios && !noScenarios {
				simCfg.Scripts = scenario.DefaultScripts()
			}

			gen, err := a.generator(a.cfg.Stream.Catalog)
			if err != nil {
				return err
			}
			sim, err := generator.NewSimulator(gen, a.store(), simCfg, a.log)
			if err != nil {
				return err
			}

			a.log.Info().
				Str("ledger", a.cfg.Ledger.Path).
				Int("seed_days", simCfg.SeedDays).
				Int("scripted_steps", len(simCfg.Scripts)).
				Msg("Starting transaction stream")
			return sim.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between streamed transactions (default from config)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after this many transactions; 0 streams until interrupted")
	cmd.Flags().IntVar(&seedDays, "seed-days", 0, "Days of history to seed before streaming (default from config)")
	cmd.Flags().BoolVar(&noScenarios, "no-scenarios", false, "Disable the scripted duplicate and spike steps")
	return cmd
}

func (a *app) newSeedCmd() *cobra.Command {
	var (
		days      int
		maxPerDay int
		catalog   string
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Append a block of generated history ending yesterday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			c, err := generator.CatalogByName(catalog)
			if err != nil {
				return err
			}
			opts := []generator.Option{generator.WithClock(a.now)}
			if seed != 0 {
				opts = append(opts, generator.WithSeed(seed))
			}
			gen, err := generator.New(c, opts...)
			if err != nil {
				return err
			}

			sim, err := generator.NewSimulator(gen, a.store(), generator.SimulatorConfig{
				SeedDays:  days,
				MaxPerDay: maxPerDay,
			}, a.log)
			if err != nil {
				return err
			}

			n, err := sim.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appended %d transactions over %d days to %s\n", n, days, a.cfg.Ledger.Path)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 180, "Days of history to generate")
	cmd.Flags().IntVar(&maxPerDay, "max-per-day", 3, "Upper bound of transactions per day")
	cmd.Flags().StringVar(&catalog, "catalog", "history", "Catalog to draw from: stream or history")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible history (0 picks one)")
	return cmd
}
