package aggregate

import (
	"loanScope/internal/model"
)

// Aggregate folds an ordered event sequence into loan records keyed by loan
// id. It is a pure function: the same sequence always yields the same map.
//
// Status follows the last processed lifecycle event for a loan, not the
// chronologically latest one. Callers that need chronological status must
// sort events by (block_number, log_index) first.
func Aggregate(events []model.Event) map[string]model.LoanRecord {
	loans := make(map[string]*model.LoanRecord)
	for _, ev := range events {
		apply(loans, ev)
	}

	out := make(map[string]model.LoanRecord, len(loans))
	for id, rec := range loans {
		out[id] = *rec
	}
	return out
}

func apply(loans map[string]*model.LoanRecord, ev model.Event) {
	id, ok := ev.LoanID()
	if !ok {
		return
	}

	rec, ok := loans[id]
	if !ok {
		rec = &model.LoanRecord{
			LoanID:    id,
			Status:    model.LoanStatusUnknown,
			CreatedAt: ev.BlockTimestamp,
		}
		loans[id] = rec
	}
	rec.EventsCount++

	switch p := model.ParsePayload(ev.Name, ev.Fields).(type) {
	case model.LoanCreatedPayload:
		rec.Status = model.LoanStatusCreated
		setIfPresent(&rec.Borrower, p.Borrower)
		setIfPresent(&rec.Amount, p.Amount)
		setIfPresent(&rec.Lender, p.Lender)
	case model.LoanAcceptedPayload:
		rec.Status = model.LoanStatusActive
		setIfPresent(&rec.Lender, p.Lender)
		setIfPresent(&rec.Borrower, p.Borrower)
	case model.LoanRepaidPayload:
		rec.Status = model.LoanStatusRepaid
	case model.LoanLiquidatedPayload:
		rec.Status = model.LoanStatusLiquidated
	case model.CollateralChangePayload:
		if p.Name == "CollateralAdded" {
			setIfPresent(&rec.CollateralAmount, p.Amount)
		}
	}
}

func setIfPresent(dst **string, value string) {
	if value == "" {
		return
	}
	v := value
	*dst = &v
}
