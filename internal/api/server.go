package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"movie-dq-pipeline/internal/api/handler"
	"movie-dq-pipeline/internal/config"
	"movie-dq-pipeline/internal/jobs"
	"movie-dq-pipeline/internal/store"
	"movie-dq-pipeline/pkg/router"
	"movie-dq-pipeline/pkg/utils"
)

// Serve runs the HTTP API until ctx is cancelled, then stops accepting
// requests and waits for running jobs to record their final status.
func Serve(ctx context.Context, cfg *config.Config) error {
	outputs := utils.NewOutputManager(cfg.Storage.OutputDir)
	if err := outputs.EnsureOutputDirExists(); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	st, err := store.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer st.Close()
	slog.Info("job store opened", "path", cfg.Storage.SQLitePath)

	manager := jobs.NewManager(jobs.Options{
		Store:       st,
		Outputs:     outputs,
		Defaults:    cfg.JobDefaults(),
		PostgresURL: cfg.Storage.PostgresURL,
	})

	r := router.New()
	RegisterRoutes(r, handler.New(manager, st))

	server := r.NewServer(router.ServerConfig{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		_ = manager.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		slog.Warn("jobs did not finish in time", "error", err)
		errs = append(errs, fmt.Errorf("shutdown jobs: %w", err))
	}
	if err := <-serveErr; err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
