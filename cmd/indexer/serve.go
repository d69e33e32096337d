package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loanScope/internal/api"
	"loanScope/internal/config"
	"loanScope/internal/eventstore"
	"loanScope/internal/query"
	"loanScope/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var loader eventstore.Loader
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		loader = eventstore.LoaderFunc(pgStore.LoadEvents)
	} else {
		if cfg.Source == "" {
			return fmt.Errorf("source directory is required")
		}
		loader = eventstore.NewDirLoader(cfg.Source, logger)
	}

	store := eventstore.NewStore(loader, logger)
	if err := store.Refresh(ctx); err != nil {
		// serve an empty snapshot until a later refresh succeeds
		logger.Error("initial load failed", zap.Error(err))
	}
	go store.RefreshEvery(ctx, cfg.RefreshInterval)

	gin.SetMode(gin.ReleaseMode)
	service := query.NewService(store, query.Options{RecentLimit: cfg.RecentLimit})
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewRouter(service, store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("http server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("query service start",
		zap.String("listen", cfg.Listen),
		zap.String("source", cfg.Source),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Duration("refresh_interval", cfg.RefreshInterval),
		zap.Int("events", store.Len()),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
