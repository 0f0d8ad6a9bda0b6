package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
)

// trustWalletList is the TrustWallet assets repository tokenlist format.
type trustWalletList struct {
	Name   string `json:"name"`
	Tokens []struct {
		Address  string `json:"address"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
		Type     string `json:"type"`
		LogoURI  string `json:"logoURI"`
	} `json:"tokens"`
}

// tokenList is the standard Uniswap-style token list format used by the
// Optimism static list. Entries carry a chainId and must be filtered.
type tokenList struct {
	Name   string `json:"name"`
	Tokens []struct {
		ChainID  uint64 `json:"chainId"`
		Address  string `json:"address"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
		LogoURI  string `json:"logoURI"`
	} `json:"tokens"`
}

// blockscoutList is the Blockscout v2 token endpoint format used by the Linea
// explorer. Decimals arrive as a string.
type blockscoutList struct {
	Items []struct {
		Address  string `json:"address"`
		Decimals string `json:"decimals"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Type     string `json:"type"`
	} `json:"items"`
}

func (r *Registry) fetchTokenList(ctx context.Context, chainID config.ChainID) ([]Token, error) {
	source, ok := r.sources[chainID]
	if !ok {
		return nil, fmt.Errorf("no token list source for %s", chainID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build token list request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch token list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch token list: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token list: %w", err)
	}

	switch source.Format {
	case config.ListFormatTrustWallet:
		return parseTrustWalletList(body, chainID)
	case config.ListFormatTokenList:
		return parseTokenList(body, chainID)
	case config.ListFormatBlockscout:
		return parseBlockscoutList(body, chainID)
	default:
		return nil, fmt.Errorf("unknown token list format %q", source.Format)
	}
}

func parseTrustWalletList(body []byte, chainID config.ChainID) ([]Token, error) {
	var list trustWalletList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode trustwallet list: %w", err)
	}
	tokens := make([]Token, 0, len(list.Tokens))
	for _, entry := range list.Tokens {
		tokens = append(tokens, Token{
			ChainID:  chainID,
			Address:  entry.Address,
			Name:     entry.Name,
			Symbol:   entry.Symbol,
			Decimals: entry.Decimals,
			Type:     entry.Type,
			LogoURI:  entry.LogoURI,
		})
	}
	return tokens, nil
}

func parseTokenList(body []byte, chainID config.ChainID) ([]Token, error) {
	var list tokenList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode token list: %w", err)
	}
	tokens := make([]Token, 0, len(list.Tokens))
	for _, entry := range list.Tokens {
		if entry.ChainID != uint64(chainID) {
			continue
		}
		tokens = append(tokens, Token{
			ChainID:  chainID,
			Address:  entry.Address,
			Name:     entry.Name,
			Symbol:   entry.Symbol,
			Decimals: entry.Decimals,
			Type:     "ERC20",
			LogoURI:  entry.LogoURI,
		})
	}
	return tokens, nil
}

func parseBlockscoutList(body []byte, chainID config.ChainID) ([]Token, error) {
	var list blockscoutList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode blockscout list: %w", err)
	}
	tokens := make([]Token, 0, len(list.Items))
	for _, item := range list.Items {
		decimals, err := strconv.ParseUint(item.Decimals, 10, 8)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{
			ChainID:  chainID,
			Address:  item.Address,
			Name:     item.Name,
			Symbol:   item.Symbol,
			Decimals: uint8(decimals),
			Type:     item.Type,
		})
	}
	return tokens, nil
}
