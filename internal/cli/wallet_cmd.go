package cli

import (
	"fmt"

	"github.com/alexanderramin/dealroom/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newWalletCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Reference wallet ledger",
	}
	cmd.AddCommand(newWalletDepositCmd(app), newWalletBalanceCmd(app))
	return cmd
}

func newWalletDepositCmd(app *App) *cobra.Command {
	var amount moneyValue
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Top up the acting user's wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.requireActor()
			if err != nil {
				return err
			}
			if _, err := app.Wallet.TopUp(cmd.Context(), user, int64(amount)); err != nil {
				return err
			}
			bal, err := app.Wallet.Balance(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deposited %s; balance %s\n", formatter.Money(int64(amount)), formatter.Money(bal))
			return nil
		},
	}
	cmd.Flags().Var(&amount, "amount", "Amount to add, e.g. 500")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newWalletBalanceCmd(app *App) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the acting user's balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.requireActor()
			if err != nil {
				return err
			}
			bal, err := app.Wallet.Balance(cmd.Context(), user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", formatter.Bold(user), formatter.Money(bal))
			if history {
				entries, err := app.Wallet.Entries(cmd.Context(), user)
				if err != nil {
					return err
				}
				fmt.Fprint(out, formatter.FormatEntries(entries))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Include ledger entries")
	return cmd
}
