package model

// DecodeError records a log that matched a known signature but could not be
// decoded. It is written to the decode error file and never persisted as an
// Event.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"transaction_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"contract_address"`
	Topic0      string `json:"topic0"`
	EventName   string `json:"event_name,omitempty"`
	Reason      string `json:"error"`
}

func (e *DecodeError) Error() string {
	msg := "decode " + e.TxHash
	if e.EventName != "" {
		msg += " " + e.EventName
	}
	return msg + ": " + e.Reason
}
