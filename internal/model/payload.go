package model

// Payload is the typed view of an event's decoded fields. The concrete type
// is selected by event name; GenericPayload covers everything the loan
// lifecycle does not read.
type Payload interface {
	EventName() string
}

// LoanCreatedPayload is emitted when a lender posts a loan offer.
type LoanCreatedPayload struct {
	LoanID           string
	Lender           string
	TokenAddress     string
	Amount           string
	InterestRate     string
	Duration         string
	CollateralToken  string
	CollateralAmount string
	// Borrower is not part of the current contract ABI but appears in
	// records produced by earlier deployments.
	Borrower string
}

func (LoanCreatedPayload) EventName() string { return "LoanCreated" }

// LoanAcceptedPayload is emitted when a borrower takes an offer.
type LoanAcceptedPayload struct {
	LoanID                 string
	Borrower               string
	Lender                 string
	InitialCollateralRatio string
	Timestamp              string
}

func (LoanAcceptedPayload) EventName() string { return "LoanAccepted" }

type LoanRepaidPayload struct {
	LoanID          string
	Borrower        string
	RepaymentAmount string
	Timestamp       string
}

func (LoanRepaidPayload) EventName() string { return "LoanRepaid" }

type LoanLiquidatedPayload struct {
	LoanID                    string
	Liquidator                string
	CollateralClaimedByLender string
	LiquidatorReward          string
	Timestamp                 string
}

func (LoanLiquidatedPayload) EventName() string { return "LoanLiquidated" }

// CollateralChangePayload backs both CollateralAdded and CollateralRemoved.
type CollateralChangePayload struct {
	Name               string
	LoanID             string
	Borrower           string
	Amount             string
	NewCollateralRatio string
	Timestamp          string
}

func (p CollateralChangePayload) EventName() string { return p.Name }

type LoanMatchedPayload struct {
	LoanID       string
	OfferID      string
	RequestID    string
	Lender       string
	Borrower     string
	Amount       string
	InterestRate string
	Timestamp    string
}

func (LoanMatchedPayload) EventName() string { return "LoanMatched" }

type PartialRepaymentPayload struct {
	LoanID          string
	Borrower        string
	RepaymentAmount string
	TotalRepaid     string
	RemainingAmount string
	Timestamp       string
}

func (PartialRepaymentPayload) EventName() string { return "PartialRepayment" }

// GenericPayload keeps the raw field map for events without a typed shape.
type GenericPayload struct {
	Name   string
	Fields Fields
}

func (p GenericPayload) EventName() string { return p.Name }

// ParsePayload builds the typed payload for an event name. Missing fields
// become empty strings.
func ParsePayload(name string, fields Fields) Payload {
	get := func(key string) string { return fields[key] }

	switch name {
	case "LoanCreated":
		return LoanCreatedPayload{
			LoanID:           get("loanId"),
			Lender:           get("lender"),
			TokenAddress:     get("tokenAddress"),
			Amount:           get("amount"),
			InterestRate:     get("interestRate"),
			Duration:         get("duration"),
			CollateralToken:  get("collateralAddress"),
			CollateralAmount: get("collateralAmount"),
			Borrower:         get("borrower"),
		}
	case "LoanAccepted":
		return LoanAcceptedPayload{
			LoanID:                 get("loanId"),
			Borrower:               get("borrower"),
			Lender:                 get("lender"),
			InitialCollateralRatio: get("initialCollateralRatio"),
			Timestamp:              get("timestamp"),
		}
	case "LoanRepaid":
		return LoanRepaidPayload{
			LoanID:          get("loanId"),
			Borrower:        get("borrower"),
			RepaymentAmount: get("repaymentAmount"),
			Timestamp:       get("timestamp"),
		}
	case "LoanLiquidated":
		return LoanLiquidatedPayload{
			LoanID:                    get("loanId"),
			Liquidator:                get("liquidator"),
			CollateralClaimedByLender: get("collateralClaimedByLender"),
			LiquidatorReward:          get("liquidatorReward"),
			Timestamp:                 get("timestamp"),
		}
	case "CollateralAdded", "CollateralRemoved":
		return CollateralChangePayload{
			Name:               name,
			LoanID:             get("loanId"),
			Borrower:           get("borrower"),
			Amount:             get("amount"),
			NewCollateralRatio: get("newCollateralRatio"),
			Timestamp:          get("timestamp"),
		}
	case "LoanMatched":
		return LoanMatchedPayload{
			LoanID:       get("loanId"),
			OfferID:      get("offerId"),
			RequestID:    get("requestId"),
			Lender:       get("lender"),
			Borrower:     get("borrower"),
			Amount:       get("amount"),
			InterestRate: get("interestRate"),
			Timestamp:    get("timestamp"),
		}
	case "PartialRepayment":
		return PartialRepaymentPayload{
			LoanID:          get("loanId"),
			Borrower:        get("borrower"),
			RepaymentAmount: get("repaymentAmount"),
			TotalRepaid:     get("totalRepaidAmount"),
			RemainingAmount: get("remainingAmount"),
			Timestamp:       get("timestamp"),
		}
	default:
		return GenericPayload{Name: name, Fields: fields.Clone()}
	}
}
