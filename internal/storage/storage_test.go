package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanScope/internal/model"
)

func sampleEvent() model.Event {
	return model.Event{
		Name:            "LoanCreated",
		TxHash:          "0xAB12",
		BlockNumber:     100,
		BlockTimestamp:  1700000000,
		LogIndex:        3,
		ContractAddress: "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23",
		Topics:          []string{"0x01"},
		Data:            "0x",
		Fields:          model.Fields{"loanId": "1", "amount": "1000"},
	}
}

func TestDirSinkIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)
	ev := sampleEvent()

	require.NoError(t, sink.Persist(context.Background(), ev))
	require.NoError(t, sink.Persist(context.Background(), ev))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "LoanCreated_100_0xab12_3.json", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var got model.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ev, got)
}

func TestDirSinkDistinctIdentities(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)
	ev := sampleEvent()
	other := sampleEvent()
	other.LogIndex = 4

	require.NoError(t, sink.Persist(context.Background(), ev))
	require.NoError(t, sink.Persist(context.Background(), other))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDirSinkCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewDirSink(t.TempDir()).Persist(ctx, sampleEvent()))
}

func TestFileNameSanitizesName(t *testing.T) {
	ev := sampleEvent()
	ev.Name = "../evil"
	assert.Equal(t, "___evil_100_0xab12_3.json", FileName(ev))

	ev.Name = ""
	assert.Equal(t, "Unknown_100_0xab12_3.json", FileName(ev))
}

func TestJSONLSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewJSONLSink(path)

	require.NoError(t, sink.Persist(context.Background(), sampleEvent()))
	require.NoError(t, sink.Persist(context.Background(), sampleEvent()))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev model.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines++
	}
	assert.Equal(t, 2, lines)
}

type failingSink struct{ err error }

func (f failingSink) Name() string { return "broken" }

func (f failingSink) Persist(context.Context, model.Event) error { return f.err }

func TestFanoutAttemptsEverySink(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("disk full")
	fanout := NewFanout(failingSink{err: boom}, nil, NewDirSink(dir))

	err := fanout.Persist(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var perr *model.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken", perr.Sink)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
