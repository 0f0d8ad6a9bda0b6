package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime configuration of the swap agent. The Safe secrets
// are validated per request, not at startup: a bot without them simply does
// not offer the swap action.
type Config struct {
	SafeOwnerKey   string
	SafeAddress    string
	ListenAddr     string
	LogLevel       string
	LogFormat      string
	ReceiptTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("RECEIPT_TIMEOUT", "3m")
	viper.AutomaticEnv()

	cfg := &Config{
		SafeOwnerKey:   viper.GetString("SAFE_OWNER_PRIVATE_KEY"),
		SafeAddress:    viper.GetString("SAFE_ADDRESS"),
		ListenAddr:     viper.GetString("LISTEN_ADDR"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		LogFormat:      viper.GetString("LOG_FORMAT"),
		ReceiptTimeout: viper.GetDuration("RECEIPT_TIMEOUT"),
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 3 * time.Minute
	}
	return cfg, nil
}

// HasSigner reports whether both Safe secrets required to execute swaps are present.
func (c *Config) HasSigner() bool {
	return c.SafeOwnerKey != "" && c.SafeAddress != ""
}
