package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/video-comb/app/api"
	"github.com/lysyi3m/video-comb/app/cfg"
	"github.com/lysyi3m/video-comb/app/setup"
	"github.com/lysyi3m/video-comb/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	setupLogger(appConfig.Debug)

	if err := run(appConfig); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(appConfig *cfg.Cfg) error {
	slog.Info("Starting Video Comb server", "version", cfg.GetVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.Build(ctx, appConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.OpenStore(ctx); err != nil {
		return err
	}

	slog.Info("Starting background scheduler",
		"workers", appConfig.WorkerCount,
		"update_interval", appConfig.UpdateInterval)
	scheduler := tasks.NewScheduler(app.Catalog, app.Runners(), tasks.Options{
		Interval:    appConfig.UpdateInterval,
		WorkerCount: appConfig.WorkerCount,
		TaskTimeout: appConfig.TaskTimeout,
		UpdateLimit: appConfig.ItemsLimit,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(app.Store, app.Registry, app.Catalog, scheduler, appConfig.ItemsLimit)
	httpServer := &http.Server{
		Addr:        ":" + appConfig.Port,
		Handler:     api.NewServer(handler, appConfig.APIAccessKey),
		ReadTimeout: 30 * time.Second,
		// No write timeout: run event streams last as long as the run.
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErrChan:
		return err
	}

	slog.Info("Shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Video Comb server shutdown complete")
	return nil
}
