package model

import (
	"encoding/json"
	"testing"
)

func TestEventUnmarshalStringifiesScalars(t *testing.T) {
	raw := `{
		"event_name": "LoanCreated",
		"transaction_hash": "0xABC",
		"block_number": 10,
		"block_timestamp": 1700000000,
		"log_index": 3,
		"contract_address": "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		"topics": ["0x01"],
		"data": "0x",
		"decoded_data": {
			"loanId": 7,
			"amount": 123456789012345678901234567890,
			"lender": "0x2222222222222222222222222222222222222222",
			"flag": true,
			"nested": {"a": 1},
			"missing": null
		}
	}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := map[string]string{
		"loanId": "7",
		"amount": "123456789012345678901234567890",
		"lender": "0x2222222222222222222222222222222222222222",
		"flag":   "true",
	}
	if len(ev.Fields) != len(want) {
		t.Fatalf("fields mismatch: %+v", ev.Fields)
	}
	for k, v := range want {
		if ev.Fields[k] != v {
			t.Fatalf("field %s = %q, want %q", k, ev.Fields[k], v)
		}
	}
	if id, ok := ev.LoanID(); !ok || id != "7" {
		t.Fatalf("loan id = %q %v", id, ok)
	}
}

func TestEventUnmarshalLegacyFieldsKey(t *testing.T) {
	raw := `{"event_name":"LoanRepaid","transaction_hash":"0x1","log_index":0,"decoded_fields":{"loanId":"9"}}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ev.Fields["loanId"] != "9" {
		t.Fatalf("expected legacy decoded_fields to load, got %+v", ev.Fields)
	}
}

func TestEventWithoutFields(t *testing.T) {
	raw := `{"event_name":"Unknown","transaction_hash":"0x1","log_index":0}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ev.Fields != nil {
		t.Fatalf("expected nil fields, got %+v", ev.Fields)
	}
	if _, ok := ev.LoanID(); ok {
		t.Fatalf("expected no loan id")
	}

	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := generic["decoded_data"]; ok {
		t.Fatalf("decoded_data should be omitted when absent")
	}
}

func TestEventKeyIgnoresHashCase(t *testing.T) {
	a := Event{TxHash: "0xABCDEF", LogIndex: 2}
	b := Event{TxHash: "0xabcdef", LogIndex: 2}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %s vs %s", a.Key(), b.Key())
	}
	c := Event{TxHash: "0xabcdef", LogIndex: 3}
	if a.Key() == c.Key() {
		t.Fatalf("different log index must produce different key")
	}
}

func TestEventCloneIsIndependent(t *testing.T) {
	ev := Event{Topics: []string{"0x1"}, Fields: Fields{"loanId": "1"}}
	cp := ev.Clone()
	cp.Topics[0] = "0x2"
	cp.Fields["loanId"] = "2"

	if ev.Topics[0] != "0x1" || ev.Fields["loanId"] != "1" {
		t.Fatalf("clone shares state with original: %+v", ev)
	}
}

func TestLoanRecordCloneIsIndependent(t *testing.T) {
	borrower := "0xaa"
	rec := LoanRecord{LoanID: "1", Borrower: &borrower}
	cp := rec.Clone()
	*cp.Borrower = "0xbb"

	if *rec.Borrower != "0xaa" {
		t.Fatalf("clone shares borrower pointer")
	}
}

func TestEventValidate(t *testing.T) {
	valid := Event{
		Name:            "LoanCreated",
		TxHash:          "0xabc",
		ContractAddress: "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topics:          []string{"0x01"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	cases := map[string]func(*Event){
		"no name":     func(e *Event) { e.Name = "" },
		"no tx hash":  func(e *Event) { e.TxHash = "" },
		"no contract": func(e *Event) { e.ContractAddress = "" },
		"no topics":   func(e *Event) { e.Topics = nil },
		"empty topic": func(e *Event) { e.Topics = []string{""} },
	}
	for name, mutate := range cases {
		ev := valid.Clone()
		mutate(&ev)
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecodeErrorRecordIsNotAnEvent(t *testing.T) {
	raw, err := json.Marshal(&DecodeError{
		BlockNumber: 7,
		TxHash:      "0xabc",
		Address:     "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topic0:      "0x01",
		EventName:   "LoanCreated",
		Reason:      "abi: cannot unmarshal",
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := ev.Validate(); err == nil {
		t.Fatalf("decode error record validated as event: %+v", ev)
	}
}
