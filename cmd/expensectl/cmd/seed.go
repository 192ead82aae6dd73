package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/scenario"
)

func newSeedCmd(a *app) *cobra.Command {
	var list bool

	c := &cobra.Command{
		Use:   "seed [scenario]",
		Short: "Wipe the store and load a demo scenario",
		Long: `Wipe the store and load one of the built-in scenarios. Use --list to see
what is available.

Example:
  expensectl seed --list
  expensectl seed household`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) == 0 {
				all, err := scenario.List()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, sc := range all {
					fmt.Fprintf(w, "%s\t%s\t%s\n", sc.ID, sc.Name, sc.Description)
				}
				return w.Flush()
			}

			sum, err := scenario.Load(cmd.Context(), a.engine, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s: %d categories, %d owners, %d payment methods, %d bills\n",
				sum.Scenario, sum.Categories, sum.Owners, sum.PaymentMethods, sum.Bills)
			return nil
		},
	}

	c.Flags().BoolVar(&list, "list", false, "list the built-in scenarios")
	return c
}
