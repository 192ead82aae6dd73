package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/expense"
)

func newStatsCmd(a *app) *cobra.Command {
	var from, to string

	c := &cobra.Command{
		Use:   "stats",
		Short: "Display income, expense and per-bucket totals",
		Long: `Display statistics over bills whose payment method is income or expense.
Excluded methods are left out. A bill tagged with several categories counts
towards each of them, but only once towards the totals.

Example:
  expensectl stats --from 2025-01-01 --to 2025-01-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromT, err := parseDate(from, false)
			if err != nil {
				return err
			}
			toT, err := parseDate(to, true)
			if err != nil {
				return err
			}

			stats, err := expense.NewStatisticsService(a.handle.Store).Calculate(cmd.Context(), fromT, toT)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "\n=== Statistics ===")
			fmt.Fprintf(out, "Total income:   %s\n", stats.TotalIncome.StringFixed(2))
			fmt.Fprintf(out, "Total expense:  %s\n", stats.TotalExpense.StringFixed(2))
			fmt.Fprintf(out, "Net:            %s\n", stats.Net().StringFixed(2))
			printBuckets(out, "By category", stats.ByCategory)
			printBuckets(out, "By owner", stats.ByOwner)
			printBuckets(out, "By payment method", stats.ByPaymentMethod)
			fmt.Fprintln(out)
			return nil
		},
	}

	c.Flags().StringVar(&from, "from", "", "earliest date, YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "latest date, YYYY-MM-DD (inclusive)")
	return c
}

func printBuckets(out io.Writer, title string, buckets map[string]decimal.Decimal) {
	if len(buckets) == 0 {
		return
	}
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "\n%s:\n", title)
	for _, name := range names {
		fmt.Fprintf(out, "  %-20s %s\n", name, buckets[name].StringFixed(2))
	}
}
