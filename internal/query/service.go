package query

import (
	"math/big"
	"sort"
	"strings"

	"loanScope/internal/aggregate"
	"loanScope/internal/model"
)

const defaultRecentLimit = 10

// Snapshot is the read side of the event store.
type Snapshot interface {
	View(fn func(events []model.Event, loans map[string]model.LoanRecord))
}

type Options struct {
	// RecentLimit caps Statistics.RecentActivity. Zero means the default.
	RecentLimit int
}

// EventFilter narrows ListEvents. Empty values do not filter.
type EventFilter struct {
	Type    string
	LoanID  string
	Address string
}

// Service answers read queries over the current event store snapshot. Every
// value it returns is a copy; callers may modify results freely.
type Service struct {
	store       Snapshot
	recentLimit int
}

func NewService(store Snapshot, opts Options) *Service {
	limit := opts.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return &Service{store: store, recentLimit: limit}
}

// ListEvents returns events in store order matching every non-empty filter.
// Type compares case-insensitively, LoanID exactly, and Address matches when
// any decoded field value equals it case-insensitively.
func (s *Service) ListEvents(filter EventFilter) []model.Event {
	out := []model.Event{}
	s.store.View(func(events []model.Event, _ map[string]model.LoanRecord) {
		for _, ev := range events {
			if filter.matches(ev) {
				out = append(out, ev.Clone())
			}
		}
	})
	return out
}

func (f EventFilter) matches(ev model.Event) bool {
	if f.Type != "" && !strings.EqualFold(ev.Name, f.Type) {
		return false
	}
	if f.LoanID != "" {
		id, ok := ev.Fields["loanId"]
		if !ok || id != f.LoanID {
			return false
		}
	}
	if f.Address != "" && !touches(ev, f.Address) {
		return false
	}
	return true
}

func touches(ev model.Event, address string) bool {
	for _, v := range ev.Fields {
		if strings.EqualFold(v, address) {
			return true
		}
	}
	return false
}

// GetLoan returns the record for id, or false when no event produced one.
func (s *Service) GetLoan(id string) (model.LoanRecord, bool) {
	var (
		rec model.LoanRecord
		ok  bool
	)
	s.store.View(func(_ []model.Event, loans map[string]model.LoanRecord) {
		rec, ok = loans[id]
		if ok {
			rec = rec.Clone()
		}
	})
	return rec, ok
}

func (s *Service) ListLoans() []model.LoanRecord {
	return s.loans(func(model.LoanRecord) bool { return true })
}

// ListUserLoans returns loans whose borrower or lender equals address,
// ignoring case.
func (s *Service) ListUserLoans(address string) []model.LoanRecord {
	return s.loans(func(rec model.LoanRecord) bool { return involves(rec, address) })
}

func involves(rec model.LoanRecord, address string) bool {
	if rec.Borrower != nil && strings.EqualFold(*rec.Borrower, address) {
		return true
	}
	return rec.Lender != nil && strings.EqualFold(*rec.Lender, address)
}

func (s *Service) loans(keep func(model.LoanRecord) bool) []model.LoanRecord {
	out := []model.LoanRecord{}
	s.store.View(func(_ []model.Event, loans map[string]model.LoanRecord) {
		for _, rec := range loans {
			if keep(rec) {
				out = append(out, rec.Clone())
			}
		}
	})
	sortLoans(out)
	return out
}

// sortLoans orders by created_at, then by loan id compared numerically when
// both ids are integers.
func sortLoans(loans []model.LoanRecord) {
	sort.Slice(loans, func(i, j int) bool {
		a, b := loans[i], loans[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return lessLoanID(a.LoanID, b.LoanID)
	})
}

func lessLoanID(a, b string) bool {
	x, okA := new(big.Int).SetString(a, 10)
	y, okB := new(big.Int).SetString(b, 10)
	switch {
	case okA && okB:
		if c := x.Cmp(y); c != 0 {
			return c < 0
		}
	case okA != okB:
		return okA
	}
	return a < b
}

// GetStatistics summarises the whole store, or when user is non-empty only
// the events whose decoded fields mention user and the loans where user is
// borrower or lender.
func (s *Service) GetStatistics(user string) model.Statistics {
	var (
		events []model.Event
		loans  []model.LoanRecord
	)
	s.store.View(func(all []model.Event, byID map[string]model.LoanRecord) {
		for _, ev := range all {
			if user == "" || touches(ev, user) {
				events = append(events, ev)
			}
		}
		for _, rec := range byID {
			if user == "" || involves(rec, user) {
				loans = append(loans, rec)
			}
		}
		events = cloneEvents(events)
	})

	stats := model.Statistics{
		TotalEvents:    len(events),
		TotalLoans:     len(loans),
		TotalVolume:    aggregate.TotalVolume(loans),
		EventTypes:     make(map[string]int),
		RecentActivity: recent(events, s.recentLimit),
	}
	for _, ev := range events {
		stats.EventTypes[ev.Name]++
	}
	for _, rec := range loans {
		if rec.Status == model.LoanStatusActive {
			stats.ActiveLoans++
		}
	}
	return stats
}

func cloneEvents(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}

// recent returns the newest limit events by block timestamp, breaking ties
// by block number and then log index, newest first.
func recent(events []model.Event, limit int) []model.Event {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.BlockTimestamp != b.BlockTimestamp {
			return a.BlockTimestamp > b.BlockTimestamp
		}
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber > b.BlockNumber
		}
		return a.LogIndex > b.LogIndex
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
