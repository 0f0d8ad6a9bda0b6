package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/swap"
)

var (
	sellSymbol string
	buySymbol  string
	sellAmount float64
	chainName  string
)

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Execute one token swap through the Safe",
	Long: `Execute a single swap intent from the command line. The approval and
swap transactions run through the configured Safe, exactly as they would for
a chat request.

Examples:
  swapbot swap --sell USDC --buy WETH --amount 1.5 --chain arbitrum
  swapbot swap --sell CUSD --buy CELO --amount 10 --chain celo`,
	Run: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&sellSymbol, "sell", "", "Symbol of the token to sell")
	swapCmd.Flags().StringVar(&buySymbol, "buy", "", "Symbol of the token to buy")
	swapCmd.Flags().Float64Var(&sellAmount, "amount", 0, "Amount to sell, in token units")
	swapCmd.Flags().StringVar(&chainName, "chain", "", "Chain to swap on")
}

func runSwap(cmd *cobra.Command, args []string) {
	intent := swap.Intent{}
	if cmd.Flags().Changed("sell") {
		intent.SellTokenSymbol = &sellSymbol
	}
	if cmd.Flags().Changed("buy") {
		intent.BuyTokenSymbol = &buySymbol
	}
	if cmd.Flags().Changed("amount") {
		intent.SellAmount = &sellAmount
	}
	if cmd.Flags().Changed("chain") {
		intent.Chain = &chainName
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator := swap.NewOrchestrator(cfg, registry.New())
	err := orchestrator.Execute(ctx, intent, func(r swap.Reply) {
		fmt.Println(r.Text)
	})
	if err != nil {
		var failure *swap.Failure
		if errors.As(err, &failure) && failure.Kind == swap.FailConfigurationMissing {
			fmt.Println("Swap action is not configured: " + failure.Message)
		}
		os.Exit(1)
	}
}
