package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
)

// cleanFormatter outputs only the message, keeping chat-style log lines
// readable in a terminal.
type cleanFormatter struct{}

func (f *cleanFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

var rootCmd = &cobra.Command{
	Use:   "swapbot",
	Short: "Token swap agent executing through a guarded Safe smart account",
	Long: `swapbot executes chat-style token swap intents through a Safe smart
account, routing every trade through Uniswap V3 on a fixed set of chains.

Examples:
  swapbot serve
  swapbot swap --sell USDC --buy WETH --amount 1.5 --chain arbitrum
  swapbot tokens --chain optimism`,
}

var cfg *config.Config

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid log level %s, using info: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&cleanFormatter{})
	}
}
