package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"loanScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "NeuroLend event indexer and loan query service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index contract events from the chain",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", config.DefaultRPCURL, "RPC URL")
	runCmd.Flags().String("contract", config.DefaultContract, "lending contract address")
	runCmd.Flags().Uint64("from", config.DefaultStartBlock, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 follows the chain head")
	runCmd.Flags().Uint64("batch-size", 1000, "blocks per historical batch")
	runCmd.Flags().Duration("poll-interval", 5*time.Second, "live poll interval")
	runCmd.Flags().Duration("batch-delay", 0, "pause between historical batches")
	runCmd.Flags().Duration("rpc-timeout", 30*time.Second, "timeout for each RPC call")
	runCmd.Flags().Float64("rpc-rps", 0, "RPC requests per second, 0 means unlimited")
	runCmd.Flags().Int("max-retries", 2, "retries per failed batch")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("out", "./output", "output directory")
	runCmd.Flags().String("sink", "files", "event sink (files, jsonl, postgres)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres sink")
	runCmd.Flags().StringSlice("kafka-brokers", nil, "Kafka brokers to publish events to (comma-separated)")
	runCmd.Flags().String("kafka-topic", "neurolend-events", "Kafka topic")
	runCmd.Flags().Int("kafka-retries", 3, "Kafka producer retries per message, 0 disables retries")
	runCmd.Flags().String("unknown-events", "drop", "logs with unknown signatures (drop, retain)")
	runCmd.Flags().String("errors", "", "decode errors JSONL path")
	runCmd.Flags().String("checkpoint", "./output/.checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", false, "resume from the last processed block")
	runCmd.Flags().String("metrics-addr", "", "address to serve /metrics on, empty disables")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve loan and event queries over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("source", "./output", "directory of persisted events")
	serveCmd.Flags().String("pg-dsn", "", "load events from Postgres instead of the source directory")
	serveCmd.Flags().String("listen", ":3001", "HTTP listen address")
	serveCmd.Flags().Duration("refresh-interval", 30*time.Second, "reload interval, 0 disables")
	serveCmd.Flags().Int("recent-limit", 10, "events in statistics recent activity")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check RPC connectivity and the contract deployment",
		RunE:  runCheck,
	}

	checkCmd.Flags().String("rpc", config.DefaultRPCURL, "RPC URL")
	checkCmd.Flags().String("contract", config.DefaultContract, "lending contract address")
	checkCmd.Flags().Uint64("batch-size", 1000, "blocks to sample for recent logs")
	checkCmd.Flags().Duration("rpc-timeout", 30*time.Second, "timeout for each RPC call")
	checkCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(checkCmd)

	root.AddCommand(&cobra.Command{
		Use:   "signatures",
		Short: "Print the known event signatures and their topic0 hashes",
		Args:  cobra.NoArgs,
		RunE:  runSignatures,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
