package main

import (
	"errors"
	"fmt"

	"github.com/dvloznov/vaultmind/internal/advisor"
	"github.com/spf13/cobra"
)

func (a *app) newAdviseCmd() *cobra.Command {
	var promptOnly bool

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Summarise the ledger and ask Gemini for coaching advice",
		Long: `Advise summarises total and average daily spend, the latest transaction
and the current alerts, and sends that summary to the configured Gemini
model. Set GEMINI_API_KEY or gemini.api_key in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			l, found, err := a.evaluate(ctx)
			if err != nil {
				return err
			}
			summary, err := advisor.Summarize(l, found)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if promptOnly {
				fmt.Fprint(out, advisor.BuildPrompt(summary))
				return nil
			}
			if a.cfg.Gemini.APIKey == "" {
				return errors.New("no Gemini API key configured (set GEMINI_API_KEY)")
			}

			adv, err := advisor.NewGeminiAdvisor(ctx, advisor.GeminiConfig{
				APIKey: a.cfg.Gemini.APIKey,
				Model:  a.cfg.Gemini.Model,
			})
			if err != nil {
				return err
			}
			advice, err := adv.Advise(ctx, summary)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Total spend: %s%s | Average daily: %s%s | Transactions: %d\n\n",
				advisor.Currency, summary.TotalSpend.StringFixed(2),
				advisor.Currency, summary.AverageDailySpend.StringFixed(2),
				summary.Transactions)
			fmt.Fprintln(out, advice)
			return nil
		},
	}

	cmd.Flags().BoolVar(&promptOnly, "prompt", false, "Print the prompt instead of calling the model")
	return cmd
}
