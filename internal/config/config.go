package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "LOANSCOPE"

// Defaults for the NeuroLend deployment on 0G mainnet.
const (
	DefaultRPCURL     = "https://evmrpc.0g.ai"
	DefaultContract   = "0x064c3e0a900743d9ac87c778d2f6d3d5819d4f23"
	DefaultStartBlock = 6914309
)

// Config holds indexer settings loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	Contract          string
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	PollInterval      time.Duration
	BatchDelay        time.Duration
	RPCTimeout        time.Duration
	RPCRate           float64
	MaxRetries        int
	RetryBackoff      time.Duration
	Out               string
	Sink              string
	PGDSN             string
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaRetries      int
	UnknownEvents     string
	ErrorsPath        string
	Checkpoint        string
	CheckpointEnabled bool
	MetricsAddr       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("contract", DefaultContract)
	v.SetDefault("from", uint64(DefaultStartBlock))
	v.SetDefault("batch-size", uint64(1000))
	v.SetDefault("poll-interval", 5*time.Second)
	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("out", "./output")
	v.SetDefault("sink", "files")
	v.SetDefault("kafka-topic", "neurolend-events")
	v.SetDefault("kafka-retries", 3)
	v.SetDefault("unknown-events", "drop")
	v.SetDefault("checkpoint", "./output/.checkpoint.json")
	v.SetDefault("checkpoint-enabled", false)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Contract:          v.GetString("contract"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		PollInterval:      v.GetDuration("poll-interval"),
		BatchDelay:        v.GetDuration("batch-delay"),
		RPCTimeout:        v.GetDuration("rpc-timeout"),
		RPCRate:           v.GetFloat64("rpc-rps"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Out:               v.GetString("out"),
		Sink:              strings.ToLower(v.GetString("sink")),
		PGDSN:             v.GetString("pg-dsn"),
		KafkaBrokers:      getStringSlice(v, "kafka-brokers"),
		KafkaTopic:        v.GetString("kafka-topic"),
		KafkaRetries:      v.GetInt("kafka-retries"),
		UnknownEvents:     v.GetString("unknown-events"),
		ErrorsPath:        v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
