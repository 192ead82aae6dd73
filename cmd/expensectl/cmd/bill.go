package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/expense"
)

func newBillCmd(a *app) *cobra.Command {
	billCmd := &cobra.Command{
		Use:   "bill",
		Short: "Record, list and delete bills",
	}
	billCmd.AddCommand(newBillAddCmd(a), newBillListCmd(a), newBillRemoveCmd(a))
	return billCmd
}

func newBillAddCmd(a *app) *cobra.Command {
	var (
		amount     string
		method     string
		categories []string
		owner      string
		note       string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Record a bill and move its payment method's balance",
		Long: `Record a bill. Payment method, categories and owner may be given by id
or by name.

Example:
  expensectl bill add --amount 42.75 --method Visa --category Food --owner Sam`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			if !amt.IsPositive() {
				return fmt.Errorf("%w: got %s", expense.ErrInvalidAmount, amt)
			}
			pm, err := a.resolveMethod(ctx, method)
			if err != nil {
				return err
			}
			catIDs, err := a.resolveCategories(ctx, categories)
			if err != nil {
				return err
			}
			o, err := a.resolveOwner(ctx, owner)
			if err != nil {
				return err
			}

			rc, err := a.engine.CreateBill(ctx, expense.NewBill{
				Amount:          amt,
				PaymentMethodID: pm.ID,
				CategoryIDs:     catIDs,
				OwnerID:         o.ID,
				Note:            note,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded bill %s (%s on %s)\n", rc.Bill.ID, rc.Bill.Amount, rc.PaymentMethod.Name)
			printPosition(cmd.OutOrStdout(), rc.PaymentMethod)
			return nil
		},
	}

	c.Flags().StringVar(&amount, "amount", "", "bill amount, e.g. 12.50")
	c.Flags().StringVar(&method, "method", "", "payment method id or name")
	c.Flags().StringSliceVar(&categories, "category", nil, "category id or name (repeatable)")
	c.Flags().StringVar(&owner, "owner", "", "owner id or name")
	c.Flags().StringVar(&note, "note", "", "free-form note")
	_ = c.MarkFlagRequired("amount")
	_ = c.MarkFlagRequired("method")
	_ = c.MarkFlagRequired("owner")
	return c
}

func newBillListCmd(a *app) *cobra.Command {
	var (
		categories []string
		owners     []string
		methods    []string
		from, to   string
	)

	c := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List bills, optionally filtered",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var f expense.BillFilter
			var err error
			if f.CategoryIDs, err = a.resolveCategories(ctx, categories); err != nil {
				return err
			}
			for _, ref := range owners {
				o, err := a.resolveOwner(ctx, ref)
				if err != nil {
					return err
				}
				f.OwnerIDs = append(f.OwnerIDs, o.ID)
			}
			for _, ref := range methods {
				pm, err := a.resolveMethod(ctx, ref)
				if err != nil {
					return err
				}
				f.PaymentMethodIDs = append(f.PaymentMethodIDs, pm.ID)
			}
			if f.From, err = parseDate(from, false); err != nil {
				return err
			}
			if f.To, err = parseDate(to, true); err != nil {
				return err
			}

			bills, err := expense.QueryBills(ctx, a.handle.Store, f)
			if err != nil {
				return err
			}
			return a.printBills(cmd, bills)
		},
	}

	c.Flags().StringSliceVar(&categories, "category", nil, "category id or name (repeatable)")
	c.Flags().StringSliceVar(&owners, "owner", nil, "owner id or name (repeatable)")
	c.Flags().StringSliceVar(&methods, "method", nil, "payment method id or name (repeatable)")
	c.Flags().StringVar(&from, "from", "", "earliest date, YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "latest date, YYYY-MM-DD (inclusive)")
	return c
}

func newBillRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <bill-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a bill and reverse its effect on the balance",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.engine.DeleteBillByID(cmd.Context(), expense.BillID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted bill %s\n", rc.Bill.ID)
			printPosition(cmd.OutOrStdout(), rc.PaymentMethod)
			return nil
		},
	}
}

func (a *app) printBills(cmd *cobra.Command, bills []expense.Bill) error {
	ctx := cmd.Context()
	pms, err := a.methods.List(ctx)
	if err != nil {
		return err
	}
	cats, err := a.directory.ListCategories(ctx)
	if err != nil {
		return err
	}
	owners, err := a.directory.ListOwners(ctx)
	if err != nil {
		return err
	}

	pmNames := nameIndex(pms)
	catNames := nameIndex(cats)
	ownerNames := nameIndex(owners)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tMETHOD\tCATEGORIES\tOWNER\tNOTE")
	for _, b := range bills {
		names := make([]string, 0, len(b.CategoryIDs))
		for _, id := range b.CategoryIDs {
			names = append(names, orID(catNames, string(id)))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\t%s\n",
			b.ID, b.CreatedAt.Local().Format(time.DateOnly), b.Amount.StringFixed(2),
			orID(pmNames, string(b.PaymentMethodID)), names,
			orID(ownerNames, string(b.OwnerID)), b.Note)
	}
	return w.Flush()
}

func printPosition(out io.Writer, pm expense.PaymentMethod) {
	switch pm.Account {
	case expense.AccountCredit:
		fmt.Fprintf(out, "%s: outstanding %s of %s (available %s)\n",
			pm.Name, pm.Credit.Outstanding.StringFixed(2), pm.Credit.Limit.StringFixed(2),
			expense.AvailableCredit(pm).StringFixed(2))
	case expense.AccountSavings:
		fmt.Fprintf(out, "%s: balance %s\n", pm.Name, pm.Savings.Balance.StringFixed(2))
	}
}

func nameIndex[T expense.Named](items []T) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.EntityID()] = it.EntityName()
	}
	return out
}

// orID returns the display name for id, or the id itself when it dangles.
func orID(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

// parseDate reads YYYY-MM-DD in local time. An upper bound covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
