package main

import (
	"fmt"
	"strings"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) newAddCmd() *cobra.Command {
	var (
		date     string
		merchant string
		category string
		amount   string
		payment  string
		balance  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a manually entered transaction",
		Long: `Add validates and appends one transaction. The date defaults to midnight
today. Without --balance the account balance is the ledger's mean balance
less the amount, floored at zero, or 50000 less the amount on an empty ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			ts, err := ledger.ParseEntryDate(date, a.now(), a.loc)
			if err != nil {
				return &domain.ValidationError{Field: "date", Reason: err.Error()}
			}
			amt, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return &domain.ValidationError{Field: "amount", Reason: "is not a number"}
			}

			store := a.store()
			tx := domain.Transaction{
				Timestamp:     ts,
				Merchant:      strings.TrimSpace(merchant),
				Category:      strings.TrimSpace(category),
				Amount:        amt,
				PaymentMethod: strings.TrimSpace(payment),
			}
			if balance != "" {
				if tx.AccountBalance, err = decimal.NewFromString(strings.TrimSpace(balance)); err != nil {
					return &domain.ValidationError{Field: "account_balance", Reason: "is not a number"}
				}
			} else {
				current, err := store.Load(ctx)
				if err != nil {
					return err
				}
				tx.AccountBalance = current.SuggestedBalance(tx.Amount)
			}

			if err := tx.Validate(); err != nil {
				return err
			}
			if err := store.Append(ctx, tx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s at %s (%s), balance %s\n",
				a.cfg.Alerts.Currency, tx.Amount.StringFixed(2), tx.Merchant, tx.Category, tx.AccountBalance.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Transaction date: YYYY-MM-DD, 'YYYY-MM-DD HH:MM:SS' or RFC3339 (default today)")
	cmd.Flags().StringVar(&merchant, "merchant", "", "Merchant name")
	cmd.Flags().StringVar(&category, "category", "", "Spending category")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount spent")
	cmd.Flags().StringVar(&payment, "payment", "UPI", "Payment method")
	cmd.Flags().StringVar(&balance, "balance", "", "Account balance after the transaction (default derived)")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
