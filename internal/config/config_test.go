package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultContract, cfg.Contract)
	assert.Equal(t, uint64(DefaultStartBlock), cfg.FromBlock)
	assert.Equal(t, uint64(0), cfg.ToBlock)
	assert.Equal(t, uint64(1000), cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RPCTimeout)
	assert.Equal(t, "files", cfg.Sink)
	assert.Equal(t, "drop", cfg.UnknownEvents)
	assert.False(t, cfg.CheckpointEnabled)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.KafkaRetries)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("LOANSCOPE_BATCH_SIZE", "250")
	t.Setenv("LOANSCOPE_KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("LOANSCOPE_SINK", "JSONL")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Uint64("from", 0, "")
	flags.Duration("poll-interval", time.Second, "")
	flags.Int("max-retries", 2, "")
	flags.Int("kafka-retries", 3, "")
	require.NoError(t, flags.Parse([]string{"--from", "42", "--kafka-retries", "0"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.FromBlock)
	assert.Equal(t, 5*time.Second, cfg.PollInterval, "unset flag keeps the default")
	assert.Equal(t, uint64(250), cfg.BatchSize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "jsonl", cfg.Sink)
	assert.Equal(t, 0, cfg.KafkaRetries, "explicit zero disables producer retries")
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
contract: "0x1111111111111111111111111111111111111111"
kafka-brokers:
  - broker:9092
checkpoint-enabled: true
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Contract)
	assert.Equal(t, []string{"broker:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.CheckpointEnabled)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadServe(t *testing.T) {
	t.Setenv("LOANSCOPE_REFRESH_INTERVAL", "0s")

	cfg, err := LoadServe("", nil)
	require.NoError(t, err)
	assert.Equal(t, "./output", cfg.Source)
	assert.Equal(t, ":3001", cfg.Listen)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval)
	assert.Equal(t, 10, cfg.RecentLimit)
}
