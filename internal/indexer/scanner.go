package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"loanScope/internal/metrics"
	"loanScope/internal/model"
	"loanScope/internal/neurolend"
	"loanScope/internal/storage"
)

// ChainReader is the subset of the node RPC the scanner needs.
type ChainReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// EventDecoder turns a raw log into an Event.
type EventDecoder interface {
	Decode(log types.Log, blockTimestamp uint64) (model.Event, error)
}

// RecordWriter receives decode error records.
type RecordWriter interface {
	Append(values ...interface{}) error
}

// RunConfig holds runtime settings for the scanner.
type RunConfig struct {
	Contract   common.Address
	StartBlock uint64
	// EndBlock bounds the scan. Zero follows the chain head indefinitely.
	EndBlock     uint64
	BatchSize    uint64
	PollInterval time.Duration
	// BatchDelay pauses between historical batches.
	BatchDelay   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Dependencies wires the scanner to its collaborators. Cursor and
// DecodeErrors are optional.
type Dependencies struct {
	Chain        ChainReader
	Decoder      EventDecoder
	Sink         storage.Sink
	Cursor       CursorStore
	DecodeErrors RecordWriter
}

// Stats counts what the scanner has done since start.
type Stats struct {
	Batches         int
	FailedBatches   int
	Events          int
	Skipped         int
	DecodeFailures  int
	PersistFailures int
}

// Scanner walks the contract's log history from a start block to the chain
// head, then follows the head by polling. It is single-threaded: batches are
// processed strictly in block order and the cursor only moves forward.
type Scanner struct {
	cfg    RunConfig
	deps   Dependencies
	logger *zap.Logger

	mu    sync.Mutex
	next  uint64
	gaps  []BlockRange
	stats Stats
}

// NewScanner builds a Scanner with its dependencies.
func NewScanner(cfg RunConfig, deps Dependencies, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{cfg: cfg, deps: deps, logger: logger, next: cfg.StartBlock}
}

// Run executes the historical phase and, unless EndBlock is set, the live
// phase. It returns nil when ctx is cancelled and an error only for startup
// failures.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}

	chainID, err := s.deps.Chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	head, err := s.deps.Chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	metrics.ScannerChainHead.Set(float64(head))

	if err := s.resume(ctx); err != nil {
		return err
	}

	s.logger.Info("scanner start",
		zap.String("chain_id", chainID.String()),
		zap.String("contract", s.cfg.Contract.Hex()),
		zap.Uint64("from", s.Next()),
		zap.Uint64("head", head),
		zap.Uint64("end", s.cfg.EndBlock),
	)

	target := head
	if s.cfg.EndBlock > 0 {
		if s.cfg.EndBlock > head {
			s.logger.Warn("end block beyond chain head, clamping", zap.Uint64("end", s.cfg.EndBlock), zap.Uint64("head", head))
		} else {
			target = s.cfg.EndBlock
		}
	}

	s.historical(ctx, target)
	if ctx.Err() != nil {
		s.logger.Info("scanner stopped", zap.Uint64("next", s.Next()))
		return nil
	}

	stats := s.Stats()
	s.logger.Info("historical scan complete",
		zap.Uint64("next", s.Next()),
		zap.Int("events", stats.Events),
		zap.Int("gaps", len(s.Gaps())),
	)

	if s.cfg.EndBlock > 0 {
		return nil
	}

	s.live(ctx)
	s.logger.Info("scanner stopped", zap.Uint64("next", s.Next()))
	return nil
}

func (s *Scanner) validate() error {
	if s.deps.Chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if s.deps.Decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	if s.deps.Sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if s.cfg.Contract == (common.Address{}) {
		return fmt.Errorf("contract address is required")
	}
	if s.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if s.cfg.EndBlock == 0 && s.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if s.cfg.EndBlock > 0 && s.cfg.EndBlock < s.cfg.StartBlock {
		return fmt.Errorf("end block %d is before start block %d", s.cfg.EndBlock, s.cfg.StartBlock)
	}
	return nil
}

func (s *Scanner) resume(ctx context.Context) error {
	if s.deps.Cursor == nil {
		return nil
	}
	last, ok, err := s.deps.Cursor.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if ok && last >= s.cfg.StartBlock {
		s.setNext(last + 1)
		s.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", last+1))
	}
	return nil
}

// historical scans [next, target]. A batch that still fails after retries
// is logged, recorded as a gap and skipped.
func (s *Scanner) historical(ctx context.Context, target uint64) {
	from := s.Next()
	if from > target {
		s.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", target))
		return
	}

	ranges, err := SplitRange(from, target, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("split range", zap.Error(err))
		return
	}

	for i, blockRange := range ranges {
		if ctx.Err() != nil {
			return
		}

		if err := s.processRange(ctx, blockRange); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("batch failed, skipping range",
				zap.Uint64("from", blockRange.From),
				zap.Uint64("to", blockRange.To),
				zap.Error(err),
			)
			s.recordGap(blockRange)
			metrics.ScannerBatchesTotal.WithLabelValues("historical", "failed").Inc()
		} else {
			metrics.ScannerBatchesTotal.WithLabelValues("historical", "ok").Inc()
		}

		s.advance(ctx, blockRange.To)

		if i < len(ranges)-1 && s.cfg.BatchDelay > 0 {
			if !sleep(ctx, s.cfg.BatchDelay) {
				return
			}
		}
	}
}

// live polls the head every PollInterval and scans the delta. The cursor
// stops at the last fully processed batch, so a failed batch is retried on
// the next tick.
func (s *Scanner) live(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.poll(ctx)
	}
}

func (s *Scanner) poll(ctx context.Context) {
	head, err := s.deps.Chain.LatestBlockNumber(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("get latest block failed", zap.Error(err))
		}
		return
	}
	metrics.ScannerChainHead.Set(float64(head))

	from := s.Next()
	if head < from {
		return
	}

	ranges, err := SplitRange(from, head, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("split range", zap.Error(err))
		return
	}
	for _, blockRange := range ranges {
		if ctx.Err() != nil {
			return
		}
		if err := s.processRange(ctx, blockRange); err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("live batch failed, will retry",
					zap.Uint64("from", blockRange.From),
					zap.Uint64("to", blockRange.To),
					zap.Error(err),
				)
				metrics.ScannerBatchesTotal.WithLabelValues("live", "failed").Inc()
			}
			return
		}
		metrics.ScannerBatchesTotal.WithLabelValues("live", "ok").Inc()
		s.advance(ctx, blockRange.To)
	}
}

// processRange fetches, decodes and persists one batch. Fetch and timestamp
// failures abort the batch before anything is persisted. Decode and
// persistence failures affect only the event concerned.
func (s *Scanner) processRange(ctx context.Context, blockRange BlockRange) error {
	s.logger.Debug("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	logs, err := s.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
	if err != nil {
		return &model.FetchError{From: blockRange.From, To: blockRange.To, Err: err}
	}

	events := make([]model.Event, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ts, err := s.blockTimestampWithRetry(ctx, log.BlockNumber)
		if err != nil {
			return &model.FetchError{From: blockRange.From, To: blockRange.To, Err: fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)}
		}
		ev, ok := s.decode(log, ts)
		if ok {
			events = append(events, ev)
		}
	}

	for _, ev := range events {
		s.persist(ctx, ev)
	}

	s.mu.Lock()
	s.stats.Batches++
	s.stats.Events += len(events)
	s.mu.Unlock()

	if len(events) > 0 {
		s.logger.Info("batch complete", zap.Int("events", len(events)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return nil
}

func (s *Scanner) decode(log types.Log, ts uint64) (model.Event, bool) {
	ev, err := s.deps.Decoder.Decode(log, ts)
	if err == nil {
		metrics.EventsDecodedTotal.WithLabelValues(ev.Name).Inc()
		return ev, true
	}

	fields := []zap.Field{
		zap.Uint64("block_number", log.BlockNumber),
		zap.String("tx_hash", log.TxHash.Hex()),
		zap.Uint("log_index", log.Index),
	}

	var decodeErr *model.DecodeError
	switch {
	case errors.Is(err, neurolend.ErrNoTopics):
		s.logger.Warn("log without topics skipped", fields...)
		metrics.DecodeSkippedTotal.WithLabelValues("no_topics").Inc()
		s.countSkipped(false)
	case errors.Is(err, neurolend.ErrUnknownSignature):
		s.logger.Warn("unknown event signature", append(fields, zap.String("topic0", log.Topics[0].Hex()))...)
		metrics.DecodeSkippedTotal.WithLabelValues("unknown_signature").Inc()
		s.countSkipped(false)
	case errors.As(err, &decodeErr):
		s.logger.Warn("decode failed", append(fields, zap.String("event", decodeErr.EventName), zap.Error(err))...)
		metrics.DecodeSkippedTotal.WithLabelValues("malformed").Inc()
		s.countSkipped(true)
		if s.deps.DecodeErrors != nil {
			if werr := s.deps.DecodeErrors.Append(decodeErr); werr != nil {
				s.logger.Warn("write decode error", zap.Error(werr))
			}
		}
	default:
		s.logger.Warn("decode failed", append(fields, zap.Error(err))...)
		metrics.DecodeSkippedTotal.WithLabelValues("other").Inc()
		s.countSkipped(true)
	}
	return model.Event{}, false
}

func (s *Scanner) persist(ctx context.Context, ev model.Event) {
	sinkName := s.deps.Sink.Name()
	if err := s.deps.Sink.Persist(ctx, ev); err != nil {
		s.logger.Error("persist event failed",
			zap.String("event", ev.Name),
			zap.String("tx_hash", ev.TxHash),
			zap.Uint64("log_index", ev.LogIndex),
			zap.Error(err),
		)
		metrics.PersistTotal.WithLabelValues(sinkName, "error").Inc()
		s.mu.Lock()
		s.stats.PersistFailures++
		s.mu.Unlock()
		return
	}
	metrics.PersistTotal.WithLabelValues(sinkName, "ok").Inc()
}

func (s *Scanner) countSkipped(decodeFailure bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Skipped++
	if decodeFailure {
		s.stats.DecodeFailures++
	}
}

func (s *Scanner) advance(ctx context.Context, lastProcessed uint64) {
	s.setNext(lastProcessed + 1)
	metrics.ScannerCursor.Set(float64(lastProcessed))

	if s.deps.Cursor == nil {
		return
	}
	if err := s.deps.Cursor.Save(ctx, lastProcessed); err != nil && ctx.Err() == nil {
		s.logger.Warn("save checkpoint failed", zap.Uint64("block", lastProcessed), zap.Error(err))
	}
}

func (s *Scanner) setNext(next uint64) {
	s.mu.Lock()
	s.next = next
	s.mu.Unlock()
}

func (s *Scanner) recordGap(r BlockRange) {
	metrics.ScannerGapsTotal.Inc()
	s.mu.Lock()
	s.gaps = append(s.gaps, r)
	s.stats.FailedBatches++
	s.mu.Unlock()
}

// Next returns the first block not yet scanned.
func (s *Scanner) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Gaps returns the historical ranges skipped after retry exhaustion, with
// adjacent ranges merged. They can be rescanned with a bounded run.
func (s *Scanner) Gaps() []BlockRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MergeRanges(s.gaps)
}

func (s *Scanner) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scanner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = s.deps.Chain.FilterLogs(ctx, fromBlock, toBlock, s.cfg.Contract)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (s *Scanner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = s.deps.Chain.BlockTimestamp(ctx, blockNumber)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
