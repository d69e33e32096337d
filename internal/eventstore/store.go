package eventstore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"loanScope/internal/aggregate"
	"loanScope/internal/metrics"
	"loanScope/internal/model"
)

// Store holds the in-memory event set and the loan records derived from it.
// Readers share a read lock; Refresh builds a new snapshot off-lock and
// swaps it in under the write lock, so a reader sees either the old or the
// new snapshot in full.
type Store struct {
	loader Loader
	logger *zap.Logger

	refreshMu sync.Mutex

	mu       sync.RWMutex
	events   []model.Event
	loans    map[string]model.LoanRecord
	loadedAt time.Time
}

func NewStore(loader Loader, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		loader: loader,
		logger: logger,
		loans:  make(map[string]model.LoanRecord),
	}
}

// Refresh reloads every stored event, deduplicates and orders them by
// (block_number, log_index), and re-runs loan aggregation. On a load error
// the previous snapshot stays in place.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	raw, err := s.loader.Load(ctx)
	if err != nil {
		metrics.StoreRefreshTotal.WithLabelValues("error").Inc()
		return err
	}
	events := Normalize(raw)
	loans := aggregate.Aggregate(events)

	s.mu.Lock()
	s.events = events
	s.loans = loans
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()

	metrics.StoreRefreshTotal.WithLabelValues("ok").Inc()
	metrics.StoreRefreshDuration.Observe(time.Since(start).Seconds())
	metrics.StoreEvents.Set(float64(len(events)))
	metrics.StoreLoans.Set(float64(len(loans)))

	s.logger.Info("event store refreshed",
		zap.Int("loaded", len(raw)),
		zap.Int("events", len(events)),
		zap.Int("loans", len(loans)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// RefreshEvery refreshes on a fixed interval until ctx is done. Failures are
// logged and the previous snapshot keeps serving.
func (s *Store) RefreshEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("event store refresh failed", zap.Error(err))
			}
		}
	}
}

// View calls fn with the current snapshot under the read lock. fn must not
// modify or retain the slices and maps it receives.
func (s *Store) View(fn func(events []model.Event, loans map[string]model.LoanRecord)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.events, s.loans)
}

// LoadedAt returns when the current snapshot was built. Zero before the
// first successful refresh.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Len returns the number of events in the current snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
