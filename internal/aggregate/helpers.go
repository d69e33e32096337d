package aggregate

import (
	"fmt"
	"math/big"

	"loanScope/internal/model"
)

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

// TotalVolume sums the principal amounts of the records as unbounded
// integers. Missing, negative and unparseable amounts are ignored.
func TotalVolume(records []model.LoanRecord) string {
	total := new(big.Int)
	for _, rec := range records {
		if rec.Amount == nil {
			continue
		}
		amount, err := parseBigInt(*rec.Amount)
		if err != nil || amount.Sign() < 0 {
			continue
		}
		total.Add(total, amount)
	}
	return total.String()
}
