package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
	"github.com/kendall-kelly/install-intake-api/services"
	"github.com/kendall-kelly/install-intake-api/storage"
)

const shutdownTimeout = 30 * time.Second

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "install-intake",
		Short:         "Equipment installation order intake API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(serveCmd(), schemaCmd(), statsCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the submissions table on the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			adapter, err := openAdapter(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			if err := storage.EnsureSchema(cmd.Context(), adapter); err != nil {
				return err
			}
			logger.Info("Schema ready", zap.String("backend", string(cfg.Backend())))
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print submission counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			lifecycle := services.NewStoreLifecycle(cfg, logger, services.LifecycleOptions{DisableMetrics: true})
			if err := lifecycle.Init(cmd.Context()); err != nil {
				return err
			}
			defer lifecycle.Close()

			stats, err := lifecycle.Store().GetStats(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

func openAdapter(ctx context.Context, cfg *config.Config) (storage.Adapter, error) {
	if cfg.Backend() == config.BackendPostgres {
		return storage.OpenPostgres(ctx, storage.PostgresOptions{
			DSN:             cfg.PostgresDSN(),
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
	}
	return storage.OpenSQLite(ctx, cfg.SQLitePath)
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting install intake API",
		zap.String("env", cfg.GoEnv),
		zap.String("backend", string(cfg.Backend())))

	lifecycle := services.NewStoreLifecycle(cfg, logger, services.LifecycleOptions{})
	if err := lifecycle.Init(ctx); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer func() {
		if err := lifecycle.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	var archive *services.ArchiveService
	if cfg.ArchiveEnabled() {
		s3, err := services.NewS3Service(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("configure archive: %w", err)
		}
		archive = services.NewArchiveService(s3, logger)
	}

	router, err := setupRouter(cfg, lifecycle, archive, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr), zap.String("mode", lifecycle.Mode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
