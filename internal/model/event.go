package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownEventName is assigned to retained logs whose topic0 is not in the signature table.
const UnknownEventName = "Unknown"

// Event is one decoded contract log enriched with its block timestamp.
// Identity is (TxHash, LogIndex).
type Event struct {
	Name            string   `json:"event_name"`
	TxHash          string   `json:"transaction_hash"`
	BlockNumber     uint64   `json:"block_number"`
	BlockTimestamp  uint64   `json:"block_timestamp"`
	LogIndex        uint64   `json:"log_index"`
	ContractAddress string   `json:"contract_address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	Fields          Fields   `json:"decoded_data,omitempty"`
}

// Key returns the identity of the event. The hash part is lowercased.
func (e Event) Key() string {
	return strings.ToLower(e.TxHash) + ":" + strconv.FormatUint(e.LogIndex, 10)
}

// Validate reports whether the record carries the fields every stored
// event has: name, transaction hash, contract address and topic0.
func (e Event) Validate() error {
	var missing []string
	if e.Name == "" {
		missing = append(missing, "event_name")
	}
	if e.TxHash == "" {
		missing = append(missing, "transaction_hash")
	}
	if e.ContractAddress == "" {
		missing = append(missing, "contract_address")
	}
	if len(e.Topics) == 0 || e.Topics[0] == "" {
		missing = append(missing, "topics")
	}
	if len(missing) > 0 {
		return fmt.Errorf("record missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Field returns a decoded field value. Missing fields and events without
// decoded data both return "", false.
func (e Event) Field(name string) (string, bool) {
	if e.Fields == nil {
		return "", false
	}
	v, ok := e.Fields[name]
	return v, ok
}

// LoanID returns the non-empty loanId field.
func (e Event) LoanID() (string, bool) {
	id, ok := e.Field("loanId")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Clone returns a deep copy.
func (e Event) Clone() Event {
	out := e
	if e.Topics != nil {
		out.Topics = append([]string(nil), e.Topics...)
	}
	out.Fields = e.Fields.Clone()
	return out
}

// UnmarshalJSON accepts the legacy decoded_fields key as well as decoded_data.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	var aux struct {
		alias
		DecodedFields Fields `json:"decoded_fields,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Event(aux.alias)
	if e.Fields == nil && aux.DecodedFields != nil {
		e.Fields = aux.DecodedFields
	}
	return nil
}

// Fields holds decoded event parameters keyed by ABI parameter name. Values
// are textual: decimal integers, lowercase 0x addresses, 0x hex bytes.
type Fields map[string]string

// Clone returns a copy of the map, preserving nil.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// UnmarshalJSON renders JSON scalars to strings so records written with
// numeric values still load. Nested objects and arrays are skipped.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoded fields: %w", err)
	}
	out := make(Fields, len(raw))
	for key, value := range raw {
		text, ok := scalarText(value)
		if !ok {
			continue
		}
		out[key] = text
	}
	*f = out
	return nil
}

func scalarText(value json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		// numbers and booleans keep their literal text, which preserves
		// integers beyond float64 precision
		return trimmed, true
	}
}
