package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID identifies one of the EVM chains the swap action supports.
type ChainID uint64

const (
	Optimism  ChainID = 10
	Arbitrum  ChainID = 42161
	Avalanche ChainID = 43114
	Linea     ChainID = 59144
	Celo      ChainID = 42220
)

// NativeTokenAddress is the sentinel address used for a chain's native asset,
// which is not an ERC-20 contract.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// chainIdentifiers maps the lowercase chain name used in chat to its chain ID.
var chainIdentifiers = map[string]ChainID{
	"optimism":  Optimism,
	"arbitrum":  Arbitrum,
	"avalanche": Avalanche,
	"linea":     Linea,
	"celo":      Celo,
}

// ChainNames contains the human readable name for each supported chain.
var ChainNames = map[ChainID]string{
	Optimism:  "Optimism",
	Arbitrum:  "Arbitrum",
	Avalanche: "Avalanche",
	Linea:     "Linea",
	Celo:      "Celo",
}

// ChainExplorers contains the block explorer base URL for each supported chain.
var ChainExplorers = map[ChainID]string{
	Optimism:  "https://optimistic.etherscan.io",
	Arbitrum:  "https://arbiscan.io",
	Avalanche: "https://snowtrace.io",
	Linea:     "https://lineascan.build",
	Celo:      "https://explorer.celo.org",
}

// AllowedTokens lists the tokens the restricted-actions guard lets the Safe
// trade on each chain. Used for user-facing hints only, the guard contract
// enforces the real policy on chain.
var AllowedTokens = map[ChainID][]string{
	Optimism:  {"USDC", "USDT", "WETH"},
	Arbitrum:  {"USDC", "USDT", "WETH"},
	Avalanche: {"USDC", "USDT", "WAVAX"},
	Linea:     {"USDC", "USDT", "WETH"},
	Celo:      {"CUSD", "CEUR", "CELO"},
}

// UniswapV3SwapRouter contains the SwapRouter02 address for each supported chain.
var UniswapV3SwapRouter = map[ChainID]common.Address{
	Optimism:  common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"),
	Arbitrum:  common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"),
	Avalanche: common.HexToAddress("0xbb00FF08d01D300023C629E8fFfFcb65A5a578cE"),
	Linea:     common.HexToAddress("0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"),
	Celo:      common.HexToAddress("0x5615CDAb10dc425a742d643d949a7F474C01abc4"),
}

// UniswapV3Factory contains the Uniswap V3 factory address for each supported chain.
var UniswapV3Factory = map[ChainID]common.Address{
	Optimism:  common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
	Arbitrum:  common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
	Avalanche: common.HexToAddress("0x740b1c1de25031C31FF4fC9A62f554A55cdC1baD"),
	Linea:     common.HexToAddress("0x31FAfd4889FA1269F7a13A66eE0fB458f27D72A9"),
	Celo:      common.HexToAddress("0xAfE208a311B21f13EF87E33A90049fC17A7acDEc"),
}

// NativeToken describes a chain's native asset.
type NativeToken struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// NativeTokens contains the native asset metadata for each supported chain.
var NativeTokens = map[ChainID]NativeToken{
	Optimism:  {Name: "Ethereum", Symbol: "ETH", Decimals: 18},
	Arbitrum:  {Name: "Ethereum", Symbol: "ETH", Decimals: 18},
	Avalanche: {Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
	Linea:     {Name: "Ethereum", Symbol: "ETH", Decimals: 18},
	Celo:      {Name: "Celo", Symbol: "CELO", Decimals: 18},
}

// ListFormat names the wire format of a chain's canonical token list.
type ListFormat string

const (
	ListFormatTrustWallet ListFormat = "trustwallet"
	ListFormatTokenList   ListFormat = "tokenlist"
	ListFormatBlockscout  ListFormat = "blockscout"
)

// TokenListSource describes where and in which format a chain's token list is published.
type TokenListSource struct {
	URL    string
	Format ListFormat
}

// TokenLists contains the canonical token list source for each supported chain.
var TokenLists = map[ChainID]TokenListSource{
	Optimism: {
		URL:    "https://static.optimism.io/optimism.tokenlist.json",
		Format: ListFormatTokenList,
	},
	Arbitrum: {
		URL:    "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/arbitrum/tokenlist.json",
		Format: ListFormatTrustWallet,
	},
	Avalanche: {
		URL:    "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/avalanchec/tokenlist.json",
		Format: ListFormatTrustWallet,
	},
	Linea: {
		URL:    "https://explorer.linea.build/api/v2/tokens",
		Format: ListFormatBlockscout,
	},
	Celo: {
		URL:    "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/celo/tokenlist.json",
		Format: ListFormatTrustWallet,
	},
}

// defaultRPCURLs are public endpoints used when no env override is present.
var defaultRPCURLs = map[ChainID]string{
	Optimism:  "https://mainnet.optimism.io",
	Arbitrum:  "https://arb1.arbitrum.io/rpc",
	Avalanche: "https://api.avax.network/ext/bc/C/rpc",
	Linea:     "https://rpc.linea.build",
	Celo:      "https://forno.celo.org",
}

// rpcEnvKeys maps each chain to the env var that overrides its RPC endpoint.
var rpcEnvKeys = map[ChainID]string{
	Optimism:  "OPTIMISM_RPC_URL",
	Arbitrum:  "ARBITRUM_RPC_URL",
	Avalanche: "AVALANCHE_RPC_URL",
	Linea:     "LINEA_RPC_URL",
	Celo:      "CELO_RPC_URL",
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ParseChain resolves a chat-facing chain name (case-insensitive) to its ChainID.
func ParseChain(name string) (ChainID, bool) {
	id, ok := chainIdentifiers[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// SupportedChainNames returns the chat-facing names of all supported chains, sorted.
func SupportedChainNames() []string {
	names := make([]string, 0, len(chainIdentifiers))
	for name := range chainIdentifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllChainIDs returns every supported chain ID.
func AllChainIDs() []ChainID {
	ids := make([]ChainID, 0, len(ChainNames))
	for id := range ChainNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSupported reports whether the chain ID belongs to the fixed supported set.
func IsSupported(id ChainID) bool {
	_, ok := ChainNames[id]
	return ok
}

// String returns the human readable chain name, or the numeric ID for unknown chains.
func (c ChainID) String() string {
	if name, ok := ChainNames[c]; ok {
		return name
	}
	return fmt.Sprintf("chain-%d", uint64(c))
}

// RPCURL returns the RPC endpoint for a chain, honoring env overrides.
func RPCURL(id ChainID) (string, error) {
	envKey, ok := rpcEnvKeys[id]
	if !ok {
		return "", fmt.Errorf("unsupported chain: %d", uint64(id))
	}
	return getEnvWithDefault(envKey, defaultRPCURLs[id]), nil
}

// ExplorerTxURL builds a block explorer link for a transaction hash.
func ExplorerTxURL(id ChainID, txHash string) string {
	return fmt.Sprintf("%s/tx/%s", ChainExplorers[id], txHash)
}
