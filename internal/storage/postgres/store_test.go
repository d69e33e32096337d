package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanScope/internal/model"
)

func validRow() eventRow {
	return eventRow{
		txHash:   "0xabc",
		name:     "LoanCreated",
		contract: "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		data:     "0x",
		logIndex: 2,
		block:    10,
		ts:       1700000000,
		topics:   []byte(`["0x01","0x02"]`),
		decoded:  []byte(`{"loanId":"1","amount":"1000"}`),
	}
}

func TestEventRowDecodes(t *testing.T) {
	ev, err := validRow().event()
	require.NoError(t, err)
	assert.Equal(t, model.Event{
		Name:            "LoanCreated",
		TxHash:          "0xabc",
		BlockNumber:     10,
		BlockTimestamp:  1700000000,
		LogIndex:        2,
		ContractAddress: "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topics:          []string{"0x01", "0x02"},
		Data:            "0x",
		Fields:          model.Fields{"loanId": "1", "amount": "1000"},
	}, ev)
}

func TestEventRowWithoutDecodedData(t *testing.T) {
	row := validRow()
	row.decoded = nil
	ev, err := row.event()
	require.NoError(t, err)
	assert.Nil(t, ev.Fields)
}

func TestEventRowRejectsBrokenRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*eventRow)
	}{
		{"bad decoded data", func(r *eventRow) { r.decoded = []byte(`"not an object"`) }},
		{"bad topics", func(r *eventRow) { r.topics = []byte(`{`) }},
		{"empty topics", func(r *eventRow) { r.topics = []byte(`[]`) }},
		{"negative block", func(r *eventRow) { r.block = -1 }},
		{"missing name", func(r *eventRow) { r.name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(&row)
			_, err := row.event()
			assert.Error(t, err)
		})
	}
}
