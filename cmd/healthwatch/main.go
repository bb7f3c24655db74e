package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/healthwatch/internal/alert"
	"github.com/hazz-dev/healthwatch/internal/checker"
	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/dashboard"
	"github.com/hazz-dev/healthwatch/internal/incident"
	"github.com/hazz-dev/healthwatch/internal/logging"
	"github.com/hazz-dev/healthwatch/internal/scheduler"
	"github.com/hazz-dev/healthwatch/internal/server"
	"github.com/hazz-dev/healthwatch/internal/state"
	"github.com/hazz-dev/healthwatch/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "healthwatch",
		Short:        "Self-hosted service health monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path (YAML or JSON)")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start monitoring and serve the dashboard",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// 2. Logger
	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("config loaded", "path", cfgFile, "services", len(cfg.Services))

	// 3. State and incidents
	store := state.New()
	incidents := incident.NewTracker(incident.DefaultHistory)

	// 4. Scheduler
	sched := scheduler.New(cfg.Services, store, checker.New, logger)
	sched.OnTransition(incidents.Observe)

	// 5. Alerter (if configured)
	if webhook := alert.NewWebhook(cfg.Alerts.Webhook.URL); webhook != nil {
		alerter := alert.New(webhook, cfg.Alerts.Webhook.Cooldown.Duration, logger)
		sched.OnTransition(alerter.Notify)
		defer alerter.Wait()
		logger.Info("webhook alerts enabled", "cooldown", cfg.Alerts.Webhook.Cooldown.Duration)
	}

	// 6. Mount API and dashboard on a single mux
	apiServer := server.New(store, incidents, cfg.Services, logger)
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 8. Start scheduler
	sched.Start(ctx)
	logger.Info("scheduler started", "services", len(cfg.Services), "checks", countChecks(cfg.Services))

	// 9. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 10. Wait for signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		sched.Wait()
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 11. Graceful shutdown
	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func countChecks(services []config.Service) int {
	n := 0
	for _, svc := range services {
		n += len(svc.Checks)
	}
	return n
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run every configured check once and print the results",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return runChecks(cmd.Context(), cmd.OutOrStdout(), cfg)
}

func statusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print current service status from a running instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			return executeStatus(cmd, client, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:3000", "base URL of a running healthwatch")
	return cmd
}
