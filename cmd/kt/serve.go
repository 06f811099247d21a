package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klartext/klartext/internal/notify"
	"github.com/klartext/klartext/internal/scheduler"
	"github.com/klartext/klartext/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Klartext API server",
		Long:  "Serves the run, polling and fragment management endpoints, and starts the background scheduler when enabled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override the configured server port")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	eng, err := buildEngine(configPath)
	if err != nil {
		return err
	}

	if slack := notify.NewSlack(notify.SlackOpts{Config: eng.cfg.Notify.Slack}); slack != nil {
		eng.orch.AddNotifier(slack)
	}
	discord, err := notify.NewDiscord(notify.DiscordOpts{Config: eng.cfg.Notify.Discord})
	if err != nil {
		return fmt.Errorf("discord notifier: %w", err)
	}
	if discord != nil {
		eng.orch.AddNotifier(discord)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(eng.db, eng.orch, eng.cfg.Scheduler)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer sched.Stop()

	if port <= 0 {
		port = eng.cfg.Server.Port
	}

	return server.Start(ctx, server.StartOpts{
		DB:           eng.db,
		Orchestrator: eng.orch,
		Decomposer:   eng.decomposer,
		Tracker:      eng.tracker,
		Config:       eng.cfg,
		Port:         port,
		Out:          cmd.OutOrStdout(),
	})
}
