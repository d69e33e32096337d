package model

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusUnknown    LoanStatus = "Unknown"
	LoanStatusCreated    LoanStatus = "Created"
	LoanStatusActive     LoanStatus = "Active"
	LoanStatusRepaid     LoanStatus = "Repaid"
	LoanStatusLiquidated LoanStatus = "Liquidated"
)

// LoanRecord is the derived per-loan view folded from the event history.
// Optional values are nil until an event supplies them.
type LoanRecord struct {
	LoanID           string     `json:"loan_id"`
	Borrower         *string    `json:"borrower"`
	Lender           *string    `json:"lender"`
	Amount           *string    `json:"amount"`
	CollateralAmount *string    `json:"collateral_amount"`
	Status           LoanStatus `json:"status"`
	CreatedAt        uint64     `json:"created_at"`
	EventsCount      int        `json:"events_count"`
}

// Clone returns a copy that shares no pointers with the receiver.
func (r LoanRecord) Clone() LoanRecord {
	out := r
	out.Borrower = cloneString(r.Borrower)
	out.Lender = cloneString(r.Lender)
	out.Amount = cloneString(r.Amount)
	out.CollateralAmount = cloneString(r.CollateralAmount)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Statistics summarises the event set, globally or for one address.
type Statistics struct {
	TotalEvents    int            `json:"total_events"`
	TotalLoans     int            `json:"total_loans"`
	ActiveLoans    int            `json:"active_loans"`
	TotalVolume    string         `json:"total_volume"`
	EventTypes     map[string]int `json:"event_types"`
	RecentActivity []Event        `json:"recent_activity"`
}
