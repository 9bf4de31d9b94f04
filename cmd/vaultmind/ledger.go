package main

import (
	"encoding/json"
	"fmt"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/report"
	"github.com/spf13/cobra"
)

func (a *app) newLedgerCmd() *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print the ledger, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			l, err := a.store().Load(ctx)
			if err != nil {
				return err
			}
			if last > 0 && len(l) > last {
				l = l[len(l)-last:]
			}
			report.WriteLedgerTable(cmd.OutOrStdout(), l)
			return nil
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 0, "Only print the newest N transactions")
	return cmd
}

func (a *app) newAlertsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate the spending detectors once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			_, found, err := a.evaluate(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"alerts": found,
					"status": alerts.Status(found),
				})
			}
			report.WriteAlertsTable(out, found)
			fmt.Fprintf(out, "Status: %s\n", alerts.Status(found))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print alerts as JSON")
	return cmd
}
