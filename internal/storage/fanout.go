package storage

import (
	"context"
	"errors"

	"loanScope/internal/model"
)

// Fanout persists each event to every sink in order. All sinks are attempted;
// failures are wrapped per sink and joined.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Persist(ctx context.Context, ev model.Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Persist(ctx, ev); err != nil {
			errs = append(errs, &model.PersistenceError{Sink: sink.Name(), Key: ev.Key(), Err: err})
		}
	}
	return errors.Join(errs...)
}
