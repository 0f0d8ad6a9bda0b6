package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/api"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/swap"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the swap action over HTTP",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (defaults to LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) {
	addr := listenAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	reg := registry.New()
	orchestrator := swap.NewOrchestrator(cfg, reg)
	if !orchestrator.Configured() {
		logrus.Warn("⚠️  SAFE_OWNER_PRIVATE_KEY or SAFE_ADDRESS not set, the swap action is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.Info("🤖 Swap agent starting")
	if err := api.NewServer(orchestrator, reg).Run(ctx, addr); err != nil {
		logrus.Fatalf("❌ Server exited: %v", err)
	}
	logrus.Info("✅ Shutdown complete")
}
