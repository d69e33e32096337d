package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanScope/internal/aggregate"
	"loanScope/internal/model"
)

type staticSnapshot struct {
	events []model.Event
	loans  map[string]model.LoanRecord
}

func (s staticSnapshot) View(fn func([]model.Event, map[string]model.LoanRecord)) {
	fn(s.events, s.loans)
}

func newSnapshot(events ...model.Event) staticSnapshot {
	return staticSnapshot{events: events, loans: aggregate.Aggregate(events)}
}

func ev(name string, block uint64, fields model.Fields) model.Event {
	return model.Event{
		Name:           name,
		TxHash:         "0xtx",
		BlockNumber:    block,
		BlockTimestamp: 1000 + block,
		Fields:         fields,
	}
}

func lendingHistory() staticSnapshot {
	return newSnapshot(
		ev("LoanCreated", 1, model.Fields{"loanId": "1", "lender": "0xAAA", "amount": "1000"}),
		ev("LoanCreated", 2, model.Fields{"loanId": "2", "lender": "0xbbb", "amount": "2000"}),
		ev("LoanCreated", 3, model.Fields{"loanId": "3", "lender": "0xccc"}),
		ev("LoanRepaid", 4, model.Fields{"loanId": "3"}),
		ev("LoanRepaid", 5, model.Fields{"loanId": "3"}),
	)
}

func TestListEventsTypeFilterIgnoresCase(t *testing.T) {
	svc := NewService(lendingHistory(), Options{})

	got := svc.ListEvents(EventFilter{Type: "loancreated"})
	require.Len(t, got, 3)
	for _, e := range got {
		assert.Equal(t, "LoanCreated", e.Name)
	}
	assert.Len(t, svc.ListEvents(EventFilter{}), 5)
	assert.Empty(t, svc.ListEvents(EventFilter{Type: "LoanLiquidated"}))
}

func TestListEventsLoanIDIsExact(t *testing.T) {
	svc := NewService(newSnapshot(
		ev("LoanCreated", 1, model.Fields{"loanId": "7"}),
		ev("LoanCreated", 2, model.Fields{"loanId": "70"}),
		ev("OwnershipTransferred", 3, nil),
	), Options{})

	got := svc.ListEvents(EventFilter{LoanID: "7"})
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].BlockNumber)
}

func TestListEventsAddressMatchesAnyField(t *testing.T) {
	svc := NewService(newSnapshot(
		ev("LoanAccepted", 1, model.Fields{"loanId": "1", "borrower": "0xABC"}),
		ev("PriceFeedSet", 2, model.Fields{"tokenAddress": "0xabc", "feedId": "0x01"}),
		ev("LoanAccepted", 3, model.Fields{"loanId": "2", "borrower": "0xdef"}),
	), Options{})

	got := svc.ListEvents(EventFilter{Address: "0xabc"})
	require.Len(t, got, 2)
	assert.Equal(t, "LoanAccepted", got[0].Name)
	assert.Equal(t, "PriceFeedSet", got[1].Name)

	got = svc.ListEvents(EventFilter{Address: "0xabc", Type: "PriceFeedSet"})
	assert.Len(t, got, 1)
}

func TestListEventsReturnsCopies(t *testing.T) {
	snap := newSnapshot(ev("LoanCreated", 1, model.Fields{"loanId": "1"}))
	svc := NewService(snap, Options{})

	got := svc.ListEvents(EventFilter{})
	got[0].Fields["loanId"] = "mutated"
	assert.Equal(t, "1", snap.events[0].Fields["loanId"])
}

func TestGetLoan(t *testing.T) {
	svc := NewService(newSnapshot(
		ev("LoanCreated", 1, model.Fields{"loanId": "1", "amount": "5"}),
		ev("LoanAccepted", 2, model.Fields{"loanId": "1", "borrower": "0xb"}),
		ev("LoanRepaid", 3, model.Fields{"loanId": "1"}),
	), Options{})

	rec, ok := svc.GetLoan("1")
	require.True(t, ok)
	assert.Equal(t, model.LoanStatusRepaid, rec.Status)
	assert.Equal(t, 3, rec.EventsCount)

	*rec.Amount = "999"
	again, _ := svc.GetLoan("1")
	assert.Equal(t, "5", *again.Amount)

	_, ok = svc.GetLoan("404")
	assert.False(t, ok)
}

func TestListLoansOrdering(t *testing.T) {
	svc := NewService(newSnapshot(
		ev("LoanCreated", 5, model.Fields{"loanId": "10"}),
		ev("LoanCreated", 5, model.Fields{"loanId": "9"}),
		ev("LoanCreated", 1, model.Fields{"loanId": "30"}),
	), Options{})

	var ids []string
	for _, rec := range svc.ListLoans() {
		ids = append(ids, rec.LoanID)
	}
	assert.Equal(t, []string{"30", "9", "10"}, ids)
}

func TestListUserLoans(t *testing.T) {
	svc := NewService(lendingHistory(), Options{})

	got := svc.ListUserLoans("0xaaa")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].LoanID)
	assert.Empty(t, svc.ListUserLoans("0x999"))
	assert.NotNil(t, svc.ListUserLoans("0x999"))
}

func TestGetStatisticsGlobal(t *testing.T) {
	snap := staticSnapshot{
		events: []model.Event{
			ev("LoanCreated", 1, model.Fields{"loanId": "1"}),
			ev("LoanCreated", 2, model.Fields{"loanId": "2"}),
			ev("LoanCreated", 3, model.Fields{"loanId": "1"}),
			ev("LoanRepaid", 4, model.Fields{"loanId": "3"}),
			ev("LoanRepaid", 5, model.Fields{"loanId": "3"}),
		},
		loans: map[string]model.LoanRecord{
			"1": {LoanID: "1", Amount: strPtr("1000"), Status: model.LoanStatusActive},
			"2": {LoanID: "2", Amount: strPtr("2000"), Status: model.LoanStatusCreated},
		},
	}
	stats := NewService(snap, Options{RecentLimit: 2}).GetStatistics("")

	assert.Equal(t, 5, stats.TotalEvents)
	assert.Equal(t, 2, stats.TotalLoans)
	assert.Equal(t, 1, stats.ActiveLoans)
	assert.Equal(t, "3000", stats.TotalVolume)
	assert.Equal(t, map[string]int{"LoanCreated": 3, "LoanRepaid": 2}, stats.EventTypes)
	require.Len(t, stats.RecentActivity, 2)
	assert.Equal(t, uint64(5), stats.RecentActivity[0].BlockNumber)
	assert.Equal(t, uint64(4), stats.RecentActivity[1].BlockNumber)
}

func TestGetStatisticsForUser(t *testing.T) {
	stats := NewService(lendingHistory(), Options{}).GetStatistics("0xaaa")

	assert.Equal(t, 1, stats.TotalEvents)
	assert.Equal(t, 1, stats.TotalLoans)
	assert.Equal(t, "1000", stats.TotalVolume)
	assert.Equal(t, map[string]int{"LoanCreated": 1}, stats.EventTypes)
	require.Len(t, stats.RecentActivity, 1)
}

func TestGetStatisticsEmptyStore(t *testing.T) {
	stats := NewService(newSnapshot(), Options{}).GetStatistics("")
	assert.Equal(t, "0", stats.TotalVolume)
	assert.NotNil(t, stats.RecentActivity)
	assert.Empty(t, stats.EventTypes)
}

func TestRecentActivityTieBreak(t *testing.T) {
	events := []model.Event{
		{Name: "A", BlockTimestamp: 10, BlockNumber: 1, LogIndex: 0},
		{Name: "B", BlockTimestamp: 10, BlockNumber: 2, LogIndex: 0},
		{Name: "C", BlockTimestamp: 10, BlockNumber: 2, LogIndex: 1},
		{Name: "D", BlockTimestamp: 9, BlockNumber: 3, LogIndex: 0},
	}
	var names []string
	for _, e := range recent(events, 10) {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"C", "B", "A", "D"}, names)
}

func strPtr(s string) *string { return &s }
