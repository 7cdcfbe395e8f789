package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/config"
	"github.com/rentora/rentora/internal/dashboard"
	"github.com/rentora/rentora/internal/logging"
	"github.com/rentora/rentora/internal/syncd"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run the sync daemon in the foreground until interrupted.

The daemon periodically pushes unsynced local rows to the remote,
purges acknowledged tombstones, charges monthly rent on the last day
of the month, and reports tenants with an outstanding balance.

With --dashboard (or dashboard.enabled in the config file), a
WebSocket server broadcasts table changes, cache statistics and
unpaid-tenant notifications:

  rentora daemon --dashboard
  ws://localhost:8090/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// dashboard.enabled in the config file turns the dashboard on; an
		// explicit --dashboard flag wins either way.
		withDashboard := cfg.Dashboard.Enabled
		if cmd.Flags().Changed("dashboard") {
			withDashboard, _ = cmd.Flags().GetBool("dashboard")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		client := newClient(st)

		var notifier syncd.Notifier
		var dash *dashboard.Server
		if withDashboard {
			dcfg := dashboard.DefaultConfig(logger)
			dcfg.Port = cfg.Dashboard.Port
			dcfg.StatsInterval = cfg.Dashboard.StatsInterval
			dash = dashboard.NewServer(st, dcfg)
			if err := dash.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}
			defer func() { _ = dash.Stop() }()
			notifier = dash
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", cfg.Dashboard.Port)
		}

		scfg := syncd.DefaultConfig(logger)
		scfg.SyncInterval = cfg.Sync.Interval
		scfg.DailyInterval = cfg.Sync.DailyInterval
		scfg.Online = client.Health
		if dash != nil {
			scfg.OnRunComplete = dash.NotifySyncComplete
		}

		d := syncd.New(scfg)
		for _, job := range syncd.NewFamilyWorkers(st, client, logger) {
			d.Register(job, scfg.SyncInterval)
		}
		d.Register(syncd.NewEndOfMonth(st, client, logger), scfg.DailyInterval)
		d.Register(syncd.NewUnpaidTenants(st, notifier, logger), scfg.DailyInterval)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			logger.Info("shutting down")
			cancel()
		}()

		// Adjust log verbosity on config file edits without restarting.
		if cfgViper != nil {
			config.Watch(cfgViper, func(ncfg *config.Config) {
				lvl := logging.ParseLevel(ncfg.Log.Level)
				logLevel.SetLevel(lvl.Level())
				logger.Info("log level updated", zap.String("level", ncfg.Log.Level))
			})
		}

		fmt.Println("Sync daemon running; press Ctrl+C to stop")
		return d.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "serve the WebSocket dashboard")
}
