package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig holds query service settings.
type ServeConfig struct {
	Source          string
	PGDSN           string
	Listen          string
	RefreshInterval time.Duration
	RecentLimit     int
	LogLevel        string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v := newViper()

	v.SetDefault("source", "./output")
	v.SetDefault("listen", ":3001")
	v.SetDefault("refresh-interval", 30*time.Second)
	v.SetDefault("recent-limit", 10)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		Source:          v.GetString("source"),
		PGDSN:           v.GetString("pg-dsn"),
		Listen:          v.GetString("listen"),
		RefreshInterval: v.GetDuration("refresh-interval"),
		RecentLimit:     v.GetInt("recent-limit"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}
