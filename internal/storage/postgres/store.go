package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"loanScope/internal/metrics"
	"loanScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS contract_events (
	tx_hash          TEXT    NOT NULL,
	log_index        BIGINT  NOT NULL,
	event_name       TEXT    NOT NULL,
	block_number     BIGINT  NOT NULL,
	block_timestamp  BIGINT  NOT NULL,
	contract_address TEXT    NOT NULL,
	topics           JSONB   NOT NULL,
	data             TEXT    NOT NULL,
	decoded_data     JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tx_hash, log_index)
);
CREATE INDEX IF NOT EXISTS contract_events_block_idx ON contract_events (block_number, log_index);
CREATE TABLE IF NOT EXISTS indexer_state (
	name                 TEXT PRIMARY KEY,
	last_processed_block BIGINT NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for contract events and scanner state.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Name() string { return "postgres" }

// Persist inserts one event. Re-inserting an existing identity is a no-op.
func (s *Store) Persist(ctx context.Context, ev model.Event) error {
	return s.SaveEvents(ctx, []model.Event{ev})
}

// SaveEvents inserts events in one batch, ignoring identities already stored.
func (s *Store) SaveEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		topics, err := json.Marshal(ev.Topics)
		if err != nil {
			return fmt.Errorf("marshal topics: %w", err)
		}
		var decoded []byte
		if ev.Fields != nil {
			decoded, err = json.Marshal(ev.Fields)
			if err != nil {
				return fmt.Errorf("marshal decoded data: %w", err)
			}
		}
		batch.Queue(`
			INSERT INTO contract_events (
				tx_hash, log_index, event_name, block_number, block_timestamp,
				contract_address, topics, data, decoded_data
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			ev.TxHash,
			int64(ev.LogIndex),
			ev.Name,
			int64(ev.BlockNumber),
			int64(ev.BlockTimestamp),
			ev.ContractAddress,
			topics,
			ev.Data,
			decoded,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadEvents returns every stored event ordered by block and log index.
// Rows that cannot be decoded are logged and skipped.
func (s *Store) LoadEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, log_index, event_name, block_number, block_timestamp,
		       contract_address, topics, data, decoded_data
		FROM contract_events
		ORDER BY block_number, log_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(&row.txHash, &row.logIndex, &row.name, &row.block, &row.ts, &row.contract, &row.topics, &row.data, &row.decoded); err != nil {
			return nil, err
		}
		ev, err := row.event()
		if err != nil {
			metrics.StoreLoadErrorsTotal.Inc()
			s.logger.Error("skip stored record", zap.Error(&model.LoadError{Source: "contract_events", Err: err}))
			continue
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type eventRow struct {
	txHash, name, contract, data string
	logIndex, block, ts          int64
	topics, decoded              []byte
}

func (r eventRow) event() (model.Event, error) {
	ev := model.Event{
		Name:            r.name,
		TxHash:          r.txHash,
		BlockNumber:     uint64(r.block),
		BlockTimestamp:  uint64(r.ts),
		LogIndex:        uint64(r.logIndex),
		ContractAddress: r.contract,
		Data:            r.data,
	}
	if r.logIndex < 0 || r.block < 0 || r.ts < 0 {
		return model.Event{}, fmt.Errorf("negative position for %s", ev.Key())
	}
	if err := json.Unmarshal(r.topics, &ev.Topics); err != nil {
		return model.Event{}, fmt.Errorf("decode topics for %s: %w", ev.Key(), err)
	}
	if len(r.decoded) > 0 {
		if err := json.Unmarshal(r.decoded, &ev.Fields); err != nil {
			return model.Event{}, fmt.Errorf("decode fields for %s: %w", ev.Key(), err)
		}
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", ev.Key(), err)
	}
	return ev, nil
}

// LoadState returns the last processed block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts the last processed block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}
