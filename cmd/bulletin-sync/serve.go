package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/bulletin-sync/internal/api"
	"github.com/ignite/bulletin-sync/internal/config"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
	"github.com/ignite/bulletin-sync/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the trigger API and the daily dispatch schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(ctx context.Context, cfg *config.Config) error {
	// Each path is served only when its settings are complete
	want := paths{
		imports:    cfg.ValidateImport() == nil,
		dispatches: cfg.ValidateDispatch() == nil,
	}
	if !want.imports {
		logger.Warn("import path disabled", "error", cfg.ValidateImport())
	}
	if !want.dispatches {
		logger.Warn("dispatch path disabled", "error", cfg.ValidateDispatch())
	}

	a, err := buildApp(ctx, cfg, want)
	if err != nil {
		return err
	}
	defer a.close()

	var scheduler *worker.DispatchScheduler
	if cfg.Schedule.DispatchAt != "" && want.dispatches {
		channels, err := bulletin.ParseChannels(cfg.Schedule.Channels)
		if err != nil {
			return err
		}
		scheduler, err = worker.NewDispatchScheduler(a.runner, cfg.Schedule.DispatchAt, channels)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	handlers := api.NewHandlers(a.runner, a.storage, a.storage)
	router := api.SetupRoutes(handlers, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // runs are synchronous
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case <-done:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
