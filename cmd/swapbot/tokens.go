package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
)

var tokensChain string

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens"},
	Short:   "List the tokens known on a chain",
	Long: `List every token indexed from the chain's token list, plus the
native asset.

Examples:
  swapbot tokens --chain arbitrum
  swapbot tokens --chain linea`,
	Run: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.Flags().StringVar(&tokensChain, "chain", "", "Chain to list tokens for")
}

func runTokens(cmd *cobra.Command, args []string) {
	chainID, ok := config.ParseChain(tokensChain)
	if !ok {
		fmt.Printf("Unsupported chain: %s. Supported chains are: %s\n",
			tokensChain, strings.Join(config.SupportedChainNames(), ", "))
		os.Exit(1)
	}

	reg := registry.New()
	if err := reg.InitializeChain(context.Background(), chainID); err != nil {
		fmt.Printf("Failed to load token list: %v\n", err)
		os.Exit(1)
	}

	tokens := reg.ChainTokens(chainID)
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })

	fmt.Printf("%s (%d tokens)\n", chainID, len(tokens))
	for _, token := range tokens {
		fmt.Printf("  %-10s %2d decimals  %s\n", token.Symbol, token.Decimals, token.Address)
	}
}
