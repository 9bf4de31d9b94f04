package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/vaultmind/internal/report"
	"github.com/spf13/cobra"
)

func (a *app) newReportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print monthly and per-category spend, and optionally render PNG charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			l, err := a.store().Load(ctx)
			if err != nil {
				return err
			}
			if len(l) == 0 {
				return report.ErrNoData
			}

			monthly := report.MonthlySpend(l)
			categories := report.CategorySpend(l)

			out := cmd.OutOrStdout()
			report.WriteBucketsTable(out, "Month", monthly)
			report.WriteBucketsTable(out, "Category", categories)

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}
			charts := []struct {
				name   string
				render func(f *os.File) error
			}{
				{"monthly_spend.png", func(f *os.File) error { return report.RenderMonthlyChart(f, monthly, a.cfg.Alerts.Currency) }},
				{"category_spend.png", func(f *os.File) error { return report.RenderCategoryChart(f, categories, a.cfg.Alerts.Currency) }},
			}
			for _, c := range charts {
				path := filepath.Join(outDir, c.name)
				if err := writeFile(path, c.render); err != nil {
					return err
				}
				fmt.Fprintf(out, "Chart saved: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write PNG charts to")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger, category totals and alerts to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			l, found, err := a.evaluate(ctx)
			if err != nil {
				return err
			}
			if err := writeFile(out, func(f *os.File) error {
				return report.WriteWorkbook(f, l, found)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions and %d alerts to %s\n", len(l), len(found), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "vaultmind.xlsx", "Workbook path")
	return cmd
}

// writeFile creates path and removes it again when write fails.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

