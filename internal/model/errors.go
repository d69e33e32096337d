package model

import "fmt"

// FetchError is a failed log or timestamp retrieval for a block range.
type FetchError struct {
	From uint64
	To   uint64
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch blocks %d-%d: %v", e.From, e.To, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError is a failed write of one event to a sink.
type PersistenceError struct {
	Sink string
	Key  string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s to %s: %v", e.Key, e.Sink, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// LoadError is an unreadable or malformed stored record.
type LoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
