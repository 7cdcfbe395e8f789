package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rentora/rentora/internal/syncd"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	Long: `Run every sync job once:

  1. Push soft-deleted rows to the remote and purge acknowledged ones
  2. Push unsynced rows and mark them synced
  3. Charge monthly rent when due
  4. Report tenants with an outstanding balance

Requires a stored session (see "rentora login").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		client := newClient(st)

		dcfg := syncd.DefaultConfig(logger)
		dcfg.Online = client.Health
		d := syncd.New(dcfg)
		for _, job := range syncd.NewFamilyWorkers(st, client, logger) {
			d.Register(job, dcfg.SyncInterval)
		}
		d.Register(syncd.NewEndOfMonth(st, client, logger), dcfg.DailyInterval)
		d.Register(syncd.NewUnpaidTenants(st, nil, logger), dcfg.DailyInterval)

		start := time.Now()
		if err := d.RunAll(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}
