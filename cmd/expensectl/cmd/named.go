package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/expense"
)

// namedKind adapts the category and owner halves of expense.Directory to one
// set of subcommands.
type namedKind struct {
	use    string
	plural string
	list   func(a *app, ctx context.Context) ([]expense.Named, error)
	create func(a *app, ctx context.Context, name string) (expense.Named, error)
	rename func(a *app, ctx context.Context, id, name string) (expense.Named, error)
	remove func(a *app, ctx context.Context, id string) error
}

var categoryKind = namedKind{
	use:    "category",
	plural: "categories",
	list: func(a *app, ctx context.Context) ([]expense.Named, error) {
		cats, err := a.directory.ListCategories(ctx)
		return asNamed(cats), err
	},
	create: func(a *app, ctx context.Context, name string) (expense.Named, error) {
		return a.directory.CreateCategory(ctx, name)
	},
	rename: func(a *app, ctx context.Context, id, name string) (expense.Named, error) {
		return a.directory.RenameCategory(ctx, expense.CategoryID(id), name)
	},
	remove: func(a *app, ctx context.Context, id string) error {
		return a.directory.DeleteCategory(ctx, expense.CategoryID(id))
	},
}

var ownerKind = namedKind{
	use:    "owner",
	plural: "owners",
	list: func(a *app, ctx context.Context) ([]expense.Named, error) {
		owners, err := a.directory.ListOwners(ctx)
		return asNamed(owners), err
	},
	create: func(a *app, ctx context.Context, name string) (expense.Named, error) {
		return a.directory.CreateOwner(ctx, name)
	},
	rename: func(a *app, ctx context.Context, id, name string) (expense.Named, error) {
		return a.directory.RenameOwner(ctx, expense.OwnerID(id), name)
	},
	remove: func(a *app, ctx context.Context, id string) error {
		return a.directory.DeleteOwner(ctx, expense.OwnerID(id))
	},
}

func asNamed[T expense.Named](items []T) []expense.Named {
	out := make([]expense.Named, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func newNamedCmd(a *app, k namedKind) *cobra.Command {
	parent := &cobra.Command{
		Use:   k.use,
		Short: fmt.Sprintf("Manage %s", k.plural),
	}

	parent.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   fmt.Sprintf("List %s", k.plural),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := k.list(a, cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\n", it.EntityID(), it.EntityName())
			}
			return w.Flush()
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: fmt.Sprintf("Create a %s", k.use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := k.create(a, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", k.use, it.EntityName(), it.EntityID())
			return nil
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "rename <id|name> <new-name>",
		Short: fmt.Sprintf("Rename a %s", k.use),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := k.find(a, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			it, err := k.rename(a, cmd.Context(), target.EntityID(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", k.use, it.EntityName())
			return nil
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:     "rm <id|name>",
		Aliases: []string{"delete"},
		Short:   fmt.Sprintf("Delete a %s", k.use),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := k.find(a, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := k.remove(a, cmd.Context(), target.EntityID()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", k.use, target.EntityName())
			return nil
		},
	})

	return parent
}

func (k namedKind) find(a *app, ctx context.Context, ref string) (expense.Named, error) {
	items, err := k.list(a, ctx)
	if err != nil {
		return nil, err
	}
	return lookup(items, k.use, ref)
}
