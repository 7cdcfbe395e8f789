// Command rentora manages an offline-first rental cache that syncs with a
// remote backend. Tenants, rooms, payments and expenses live in a local
// SQLite database; a background daemon pushes local changes and purges
// tombstones once the remote acknowledges them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/config"
	"github.com/rentora/rentora/internal/logging"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

var (
	cfgFile string

	cfg      *config.Config
	cfgViper *viper.Viper
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "rentora",
	Short: "Offline-first rental management sync engine",
	Long: `Rentora keeps a local SQLite cache of tenants, rooms, payments and
expenses, and synchronizes it with a remote backend when connectivity
allows.

Writes always land locally first; the sync daemon pushes unsynced rows
and purges soft-deleted rows once the remote confirms the delete.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, cfgViper, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, logLevel = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openStore opens the local database at the configured path.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	return st, nil
}

// newClient builds the remote API client, reading the bearer token from
// the stored session on each request.
func newClient(st *store.Store) *remote.Client {
	return remote.NewClient(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
		Timeout: cfg.Remote.Timeout,
	}, st.AccessToken, logger)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default rentora.yaml)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
