package main

import (
	"fmt"
	"strings"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/report"
	"github.com/dvloznov/vaultmind/internal/scenario"
	"github.com/spf13/cobra"
)

func (a *app) newInjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inject [scenario...]",
		Short: "Append one or more anomaly scenarios to the ledger",
		Long: fmt.Sprintf(`Inject appends the rows of each named scenario, stamped with the current
time. Without arguments every built-in scenario is injected.

Scenarios: %s`, strings.Join(scenario.Names(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			gen, err := a.generator(a.cfg.Stream.Catalog)
			if err != nil {
				return err
			}
			injector := scenario.NewInjector(gen, a.store(), a.log)

			var written domain.Ledger
			if len(args) == 0 {
				written, err = injector.InjectAll(ctx)
			} else {
				for _, name := range args {
					var rows []domain.Transaction
					rows, err = injector.Inject(ctx, name)
					written = append(written, rows...)
					if err != nil {
						break
					}
				}
			}
			if len(written) > 0 {
				report.WriteLedgerTable(cmd.OutOrStdout(), written)
			}
			return err
		},
	}
}
