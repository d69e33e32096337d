package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loanScope/internal/chain"
	"loanScope/internal/config"
	"loanScope/internal/indexer"
)

// runCheck verifies the node answers, the contract has code, and reports how
// many logs it emitted in the most recent batch of blocks.
func runCheck(cmd *cobra.Command, _ []string) error {
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

	contract, err := indexer.ParseContractAddress(cfg.Contract)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{Timeout: cfg.RPCTimeout})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	head, err := client.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get block number: %w", err)
	}
	code, err := client.CodeAt(ctx, contract)
	if err != nil {
		return fmt.Errorf("get contract code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("no contract deployed at %s", contract.Hex())
	}

	from := uint64(0)
	if cfg.BatchSize > 0 && head >= cfg.BatchSize {
		from = head - cfg.BatchSize + 1
	}
	logs, err := client.FilterLogs(ctx, from, head, contract)
	if err != nil {
		return fmt.Errorf("get logs: %w", err)
	}

	logger.Info("rpc check ok",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("head", head),
		zap.String("contract", contract.Hex()),
		zap.Int("code_bytes", len(code)),
		zap.Uint64("logs_from", from),
		zap.Int("recent_logs", len(logs)),
	)
	return nil
}
