package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/expense"
)

func newMethodCmd(a *app) *cobra.Command {
	methodCmd := &cobra.Command{
		Use:     "method",
		Aliases: []string{"pm"},
		Short:   "Manage credit and savings payment methods",
	}
	methodCmd.AddCommand(
		newMethodListCmd(a),
		newMethodAddCreditCmd(a),
		newMethodAddSavingsCmd(a),
		newMethodRemoveCmd(a),
	)
	return methodCmd
}

func newMethodListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List payment methods with their balances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pms, err := a.methods.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tACCOUNT\tTYPE\tPOSITION\tAVAILABLE")
			for _, pm := range pms {
				available := "-"
				if pm.Account == expense.AccountCredit {
					available = expense.AvailableCredit(pm).StringFixed(2)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					pm.ID, pm.Name, pm.Account, pm.TransactionType, pm.Position().StringFixed(2), available)
			}
			return w.Flush()
		},
	}
}

func newMethodAddCreditCmd(a *app) *cobra.Command {
	var (
		name, txType       string
		limit, outstanding string
		billingDay         int
	)

	c := &cobra.Command{
		Use:   "add-credit",
		Short: "Create a credit payment method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, err := decimal.NewFromString(limit)
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", limit, err)
			}
			out, err := decimal.NewFromString(outstanding)
			if err != nil {
				return fmt.Errorf("invalid outstanding %q: %w", outstanding, err)
			}

			pm, err := a.methods.CreateCredit(cmd.Context(), expense.CreditInput{
				Name:            name,
				TransactionType: expense.TransactionType(txType),
				Limit:           lim,
				Outstanding:     out,
				BillingDay:      billingDay,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created credit method %s (%s)\n", pm.Name, pm.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&txType, "type", string(expense.TxExpense), "income, expense or excluded")
	c.Flags().StringVar(&limit, "limit", "", "credit limit")
	c.Flags().StringVar(&outstanding, "outstanding", "0", "opening outstanding balance")
	c.Flags().IntVar(&billingDay, "billing-day", 1, "day of month the statement closes")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("limit")
	return c
}

func newMethodAddSavingsCmd(a *app) *cobra.Command {
	var name, txType, balance string

	c := &cobra.Command{
		Use:   "add-savings",
		Short: "Create a savings payment method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bal, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("invalid balance %q: %w", balance, err)
			}

			pm, err := a.methods.CreateSavings(cmd.Context(), expense.SavingsInput{
				Name:            name,
				TransactionType: expense.TransactionType(txType),
				Balance:         bal,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created savings method %s (%s)\n", pm.Name, pm.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&txType, "type", string(expense.TxExpense), "income, expense or excluded")
	c.Flags().StringVar(&balance, "balance", "0", "opening balance")
	_ = c.MarkFlagRequired("name")
	return c
}

func newMethodRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id|name>",
		Aliases: []string{"delete"},
		Short:   "Delete a payment method no bill references",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := a.resolveMethod(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.methods.Delete(cmd.Context(), pm.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted payment method %s\n", pm.Name)
			return nil
		},
	}
}
