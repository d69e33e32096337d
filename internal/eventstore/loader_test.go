package eventstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanScope/internal/model"
	"loanScope/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirLoaderAcceptsAllEncodings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "single.json", `{"event_name":"LoanCreated","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x1","block_number":5,"log_index":0,"decoded_data":{"loanId":"1"}}`)
	writeFile(t, dir, "array.json", `[
		{"event_name":"LoanAccepted","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x2","block_number":6,"log_index":0},
		{"event_name":"LoanRepaid","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x3","block_number":7,"log_index":0}
	]`)
	writeFile(t, dir, "stream.jsonl", `{"event_name":"CollateralAdded","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x4","block_number":8,"log_index":0}
{"event_name":"CollateralAdded","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x5","block_number":8,"log_index":1}
`)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".tmp-123", `{"event_name":"LoanCreated","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x9"}`)

	events, err := NewDirLoader(dir, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestDirLoaderSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"event_name":`)
	writeFile(t, dir, "mixed.jsonl", `{"event_name":"LoanCreated","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x1","log_index":0}
not json
{"event_name":"LoanRepaid","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x2","log_index":0}
{"contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x3"}
`)
	writeFile(t, dir, "array.json", `[{"event_name":"LoanCreated","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x7"}, 42]`)

	events, err := NewDirLoader(dir, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestDirLoaderMissingDirectory(t *testing.T) {
	events, err := NewDirLoader(filepath.Join(t.TempDir(), "absent"), nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEventsSingleLine(t *testing.T) {
	events, errs := parseEvents("x", []byte(`  {"event_name":"LoanCreated","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":["0x01"],"transaction_hash":"0x1"}  `))
	assert.Empty(t, errs)
	assert.Len(t, events, 1)

	events, errs = parseEvents("x", []byte("   "))
	assert.Empty(t, errs)
	assert.Empty(t, events)
}

func TestNormalizeDeduplicatesAndOrders(t *testing.T) {
	events := Normalize([]model.Event{
		{Name: "B", TxHash: "0xAA", BlockNumber: 9, LogIndex: 1},
		{Name: "A", TxHash: "0xbb", BlockNumber: 3, LogIndex: 4},
		{Name: "dup", TxHash: "0xaa", BlockNumber: 9, LogIndex: 1},
		{Name: "C", TxHash: "0xcc", BlockNumber: 3, LogIndex: 2},
	})

	require.Len(t, events, 3)
	assert.Equal(t, "C", events[0].Name)
	assert.Equal(t, "A", events[1].Name)
	assert.Equal(t, "B", events[2].Name)
}

func TestPersistedTwiceLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	ev := model.Event{
		Name:            "LoanCreated",
		TxHash:          "0xabc",
		BlockNumber:     1,
		ContractAddress: "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topics:          []string{"0x01"},
		Fields:          model.Fields{"loanId": "1"},
	}

	for _, sink := range []storage.Sink{storage.NewDirSink(dir), storage.NewDirSink(dir), storage.NewJSONLSink(filepath.Join(dir, "events.jsonl"))} {
		require.NoError(t, sink.Persist(context.Background(), ev))
	}

	store := NewStore(NewDirLoader(dir, nil), nil)
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, 1, store.Len())
}

func TestDirLoaderSkipsDecodeErrorFile(t *testing.T) {
	dir := t.TempDir()
	events := storage.NewJSONLWriter(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, events.Append(model.Event{
		Name:            "LoanCreated",
		TxHash:          "0x1",
		BlockNumber:     5,
		ContractAddress: "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topics:          []string{"0x01"},
		Fields:          model.Fields{"loanId": "1"},
	}))
	decodeErrors := storage.NewJSONLWriter(filepath.Join(dir, "decode_errors.jsonl"))
	require.NoError(t, decodeErrors.Append(&model.DecodeError{
		BlockNumber: 7,
		TxHash:      "0xabc",
		Address:     "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topic0:      "0x01",
		EventName:   "LoanCreated",
		Reason:      "abi: cannot unmarshal",
	}))

	loaded, err := NewDirLoader(dir, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "0x1", loaded[0].TxHash)
}

func TestDecodeEventRequiresIdentityAndTopics(t *testing.T) {
	_, err := decodeEvent([]byte(`{"event_name":"LoanCreated","transaction_hash":"0x1"}`))
	assert.Error(t, err)

	_, err = decodeEvent([]byte(`{"event_name":"LoanCreated","transaction_hash":"0x1","contract_address":"0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23","topics":[]}`))
	assert.Error(t, err)
}
