// Package cmd provides CLI commands for expensectl.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/config"
	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/logging"
	"github.com/warp/household-ledger/store"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile   string
	debug     bool
	storeKind string
	dbPath    string

	handle    *store.Handle
	engine    *expense.Engine
	methods   *expense.Methods
	directory *expense.Directory
}

// newRootCmd builds the command tree. Each call returns independent flag
// state, so tests can run several invocations in one process.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "expensectl",
		Short: "Manage a household expense ledger from the command line",
		Long: `expensectl records bills against credit and savings accounts and keeps
every balance in step with the bills that reference it.

It supports:
- Recording and deleting bills (balances move with them)
- Managing payment methods, categories and owners
- Filtering bills and printing statistics
- Loading demo scenarios

Example:
  expensectl --store sqlite --db ./data/ledger.db seed household
  expensectl bill add --amount 12.50 --method Visa --category Food --owner Alex
  expensectl stats --from 2025-01-01`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.storeKind, "store", "", "store backend: sqlite or bolt (default from STORE)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (default from DB_PATH)")

	// Add subcommands
	rootCmd.AddCommand(newBillCmd(a))
	rootCmd.AddCommand(newMethodCmd(a))
	rootCmd.AddCommand(newNamedCmd(a, categoryKind))
	rootCmd.AddCommand(newNamedCmd(a, ownerKind))
	rootCmd.AddCommand(newStatsCmd(a))
	rootCmd.AddCommand(newSeedCmd(a))

	return rootCmd, a
}

// Execute builds the command tree and runs it against os.Args. The store is
// closed even when a subcommand fails.
func Execute() error {
	rootCmd, a := newRootCmd()
	defer a.close()
	return rootCmd.Execute()
}

func (a *app) open() error {
	level := slog.LevelInfo
	if a.debug {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	var files []string
	if a.cfgFile != "" {
		files = append(files, a.cfgFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if a.storeKind != "" {
		cfg.Store = strings.ToLower(a.storeKind)
		cfg.DBPath = config.DefaultDBPath(cfg.Store)
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Store == config.StoreMemory {
		logger.Warn("memory store selected; nothing will persist after this command")
	}

	slog.Debug("Opening store", "store", cfg.Store, "path", cfg.DBPath)
	a.handle, err = store.Open(cfg.Store, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	a.engine = expense.NewEngine(a.handle.Store)
	a.engine.Logger = logger
	a.methods = expense.NewMethods(a.handle.Store)
	a.directory = expense.NewDirectory(a.handle.Store)
	return nil
}

func (a *app) close() error {
	if a.handle == nil {
		return nil
	}
	err := a.handle.Close()
	a.handle = nil
	return err
}
