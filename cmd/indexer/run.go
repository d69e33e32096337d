package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loanScope/internal/chain"
	"loanScope/internal/config"
	"loanScope/internal/indexer"
	"loanScope/internal/neurolend"
	"loanScope/internal/storage"
	"loanScope/internal/storage/kafka"
	"loanScope/internal/storage/postgres"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	contract, err := indexer.ParseContractAddress(cfg.Contract)
	if err != nil {
		return err
	}
	unknown, err := neurolend.ParseUnknownPolicy(cfg.UnknownEvents)
	if err != nil {
		return err
	}

	table, err := neurolend.NewSignatureTable()
	if err != nil {
		return fmt.Errorf("load contract abi: %w", err)
	}
	decoder, err := neurolend.NewDecoder(table, unknown)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		Timeout: cfg.RPCTimeout,
		Limiter: chain.NewLimiter(cfg.RPCRate, 1),
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var (
		sink    storage.Sink
		pgStore *postgres.Store
	)
	switch cfg.Sink {
	case "files", "":
		sink = storage.NewDirSink(cfg.Out)
	case "jsonl":
		sink = storage.NewJSONLSink(filepath.Join(cfg.Out, "events.jsonl"))
	case "postgres":
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sink = pgStore
	default:
		return fmt.Errorf("unknown sink %q", cfg.Sink)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			ClientID:     "loanscope-indexer",
			MaxRetries:   cfg.KafkaRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer publisher.Close()
		sink = storage.NewFanout(sink, publisher)
	}

	deps := indexer.Dependencies{
		Chain:   chainClient,
		Decoder: decoder,
		Sink:    sink,
	}
	if cfg.ErrorsPath != "" {
		deps.DecodeErrors = storage.NewJSONLWriter(cfg.ErrorsPath)
	}
	if cfg.CheckpointEnabled {
		if pgStore != nil {
			deps.Cursor = &indexer.DBCursorStore{Backend: pgStore, Name: "scanner:" + contract.Hex()}
		} else {
			deps.Cursor = &indexer.FileCursorStore{Path: cfg.Checkpoint}
		}
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := runMetricsServer(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	scanner := indexer.NewScanner(indexer.RunConfig{
		Contract:     contract,
		StartBlock:   cfg.FromBlock,
		EndBlock:     cfg.ToBlock,
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
		BatchDelay:   cfg.BatchDelay,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, deps, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", contract.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("sink", sink.Name()),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("unknown_events", string(unknown)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Int("signatures", table.Len()),
	)

	if err := scanner.Run(ctx); err != nil {
		return err
	}

	stats := scanner.Stats()
	logger.Info("indexer stopped",
		zap.Uint64("next_block", scanner.Next()),
		zap.Int("events", stats.Events),
		zap.Int("skipped", stats.Skipped),
		zap.Int("persist_failures", stats.PersistFailures),
		zap.Int("gaps", len(scanner.Gaps())),
	)
	for _, gap := range scanner.Gaps() {
		logger.Warn("unindexed block range, rerun with --from/--to to fill",
			zap.Uint64("from", gap.From),
			zap.Uint64("to", gap.To),
		)
	}
	return nil
}

func runMetricsServer(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("metrics server started", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
