package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/config"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/generator"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/dvloznov/vaultmind/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "vaultmind.yaml"

// app carries the global flags and the state built from them.
type app struct {
	cfgFile    string
	ledgerPath string
	verbose    bool

	cfg *config.Config
	log zerolog.Logger
	loc *time.Location
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "vaultmind",
		Short: "VaultMind - synthetic transaction stream and spending alerts",
		Long: `VaultMind appends transactions to a CSV ledger, either streamed from a
synthetic generator or entered by hand, and flags anomalous spending:
weekly spikes, concentrated categories and duplicate subscription charges.

Example Usage:
  vaultmind stream                   # seed a month of history, then stream
  vaultmind inject duplicate-subscription
  vaultmind alerts                   # evaluate the detectors once
  vaultmind serve                    # dashboard API on :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to a YAML config file (default vaultmind.yaml when present)")
	root.PersistentFlags().StringVar(&a.ledgerPath, "ledger", "", "Path to the CSV ledger (overrides config and VAULTMIND_LEDGER)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.newStreamCmd(),
		a.newSeedCmd(),
		a.newInjectCmd(),
		a.newAddCmd(),
		a.newLedgerCmd(),
		a.newAlertsCmd(),
		a.newAdviseCmd(),
		a.newReportCmd(),
		a.newExportCmd(),
		a.newServeCmd(),
		a.newBackupCmd(),
		a.newMirrorCmd(),
		a.newNotifyCmd(),
	)
	return root
}

func (a *app) init() error {
	path := a.cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.ledgerPath != "" {
		cfg.Ledger.Path = a.ledgerPath
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.loc = loc
	a.log = logger.NewWithOptions(cfg.LoggerOptions())
	a.log.Debug().Str("config", path).Str("ledger", cfg.Ledger.Path).Msg("Configuration loaded")
	return nil
}

// signalContext returns a context carrying the logger that is cancelled on
// SIGINT or SIGTERM.
func (a *app) signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	return logger.WithContext(ctx, a.log), stop
}

func (a *app) now() time.Time { return time.Now().In(a.loc) }

func (a *app) store() *ledger.Store {
	return ledger.NewStore(a.cfg.Ledger.Path, ledger.WithLocation(a.loc), ledger.WithLogger(a.log))
}

func (a *app) generator(catalogName string) (*generator.Generator, error) {
	catalog, err := generator.CatalogByName(catalogName)
	if err != nil {
		return nil, err
	}
	return generator.New(catalog, generator.WithClock(a.now))
}

func (a *app) engine() *alerts.Engine {
	return alerts.NewEngine(a.cfg.AlertConfig())
}

// evaluate loads the ledger and runs the detectors once.
func (a *app) evaluate(ctx context.Context) (domain.Ledger, []alerts.Alert, error) {
	l, err := a.store().Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return l, a.engine().Evaluate(l, a.now()), nil
}
