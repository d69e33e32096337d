package storage

import (
	"context"

	"loanScope/internal/model"
)

// Sink persists one event at a time. Implementations must be idempotent per
// event identity: persisting the same (tx hash, log index) twice yields at
// most one stored record.
type Sink interface {
	Name() string
	Persist(ctx context.Context, ev model.Event) error
}
