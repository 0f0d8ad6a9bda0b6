// Package registry resolves token symbols and addresses to on-chain metadata.
// Token lists are loaded lazily, once per chain, and cached for the process
// lifetime.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
)

// Token is the metadata record for one token on one chain. A token is
// uniquely identified by (ChainID, Address).
type Token struct {
	ChainID  config.ChainID `json:"chainId"`
	Address  string         `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Type     string         `json:"type"`
	LogoURI  string         `json:"logoURI,omitempty"`
}

// IsNative reports whether the record is the synthetic native-asset entry.
func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, config.NativeTokenAddress.Hex())
}

// Registry is the process-wide token metadata cache. Safe for concurrent use;
// initialization of a chain's list runs at most once even under concurrent
// first use.
type Registry struct {
	httpClient *http.Client
	sources    map[config.ChainID]config.TokenListSource
	tokens     *cache.Cache
	group      singleflight.Group
	log        *logrus.Entry

	mu     sync.RWMutex
	loaded map[config.ChainID]bool
}

// Option customizes a Registry.
type Option func(*Registry)

// WithSources overrides the token list sources, used by tests to point the
// registry at local fixtures.
func WithSources(sources map[config.ChainID]config.TokenListSource) Option {
	return func(r *Registry) { r.sources = sources }
}

// WithHTTPClient overrides the HTTP client used to fetch token lists.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Registry) { r.httpClient = client }
}

// New creates an empty registry. Chains are populated on first use via
// InitializeChain.
func New(opts ...Option) *Registry {
	r := &Registry{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sources:    config.TokenLists,
		tokens:     cache.New(cache.NoExpiration, 0),
		loaded:     make(map[config.ChainID]bool),
		log:        logrus.WithField("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsChainSupported reports whether the chain belongs to the fixed supported set.
func (r *Registry) IsChainSupported(chainID config.ChainID) bool {
	return config.IsSupported(chainID)
}

// InitializeChain loads the chain's token list on first call and is a no-op
// afterwards. An unreachable list source degrades to a native-token-only
// index: callers see lookup misses, not errors.
func (r *Registry) InitializeChain(ctx context.Context, chainID config.ChainID) error {
	if !config.IsSupported(chainID) {
		return fmt.Errorf("unsupported chain: %d", uint64(chainID))
	}

	r.mu.RLock()
	done := r.loaded[chainID]
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.group.Do(fmt.Sprintf("chain-%d", uint64(chainID)), func() (interface{}, error) {
		r.mu.RLock()
		done := r.loaded[chainID]
		r.mu.RUnlock()
		if done {
			return nil, nil
		}

		tokens, fetchErr := r.fetchTokenList(ctx, chainID)
		if fetchErr != nil {
			r.log.WithError(fetchErr).Warnf("⚠️  Token list for %s unavailable, continuing with native asset only", chainID)
			tokens = nil
		}

		r.index(nativeToken(chainID))
		for _, token := range tokens {
			r.index(token)
		}

		r.mu.Lock()
		r.loaded[chainID] = true
		r.mu.Unlock()

		r.log.Infof("📗 Indexed %d tokens for %s", len(tokens)+1, chainID)
		return nil, nil
	})
	return err
}

// TokenBySymbol looks up a token by its symbol, case-insensitively. The
// native asset resolves through its synthetic record.
func (r *Registry) TokenBySymbol(symbol string, chainID config.ChainID) (Token, bool) {
	return r.get(symbolKey(chainID, symbol))
}

// TokenByAddress looks up a token by its contract address, case-insensitively.
func (r *Registry) TokenByAddress(address string, chainID config.ChainID) (Token, bool) {
	return r.get(addressKey(chainID, address))
}

// ChainTokens returns every indexed token for a chain, for listing surfaces.
func (r *Registry) ChainTokens(chainID config.ChainID) []Token {
	prefix := fmt.Sprintf("%d/sym/", uint64(chainID))
	var tokens []Token
	for key, item := range r.tokens.Items() {
		if strings.HasPrefix(key, prefix) {
			tokens = append(tokens, item.Object.(Token))
		}
	}
	return tokens
}

func (r *Registry) get(key string) (Token, bool) {
	v, ok := r.tokens.Get(key)
	if !ok {
		return Token{}, false
	}
	return v.(Token), true
}

// index stores a token under both lookup keys. The first listing of a symbol
// wins, keeping one canonical entry per symbol per chain.
func (r *Registry) index(token Token) {
	if token.Symbol == "" || token.Address == "" {
		return
	}
	key := symbolKey(token.ChainID, token.Symbol)
	if _, exists := r.tokens.Get(key); exists {
		return
	}
	r.tokens.Set(key, token, cache.NoExpiration)
	r.tokens.Set(addressKey(token.ChainID, token.Address), token, cache.NoExpiration)
}

func symbolKey(chainID config.ChainID, symbol string) string {
	return fmt.Sprintf("%d/sym/%s", uint64(chainID), strings.ToUpper(strings.TrimSpace(symbol)))
}

func addressKey(chainID config.ChainID, address string) string {
	return fmt.Sprintf("%d/addr/%s", uint64(chainID), strings.ToLower(strings.TrimSpace(address)))
}

// nativeToken builds the synthetic record for a chain's native asset, which
// has no contract of its own.
func nativeToken(chainID config.ChainID) Token {
	native := config.NativeTokens[chainID]
	return Token{
		ChainID:  chainID,
		Address:  config.NativeTokenAddress.Hex(),
		Name:     native.Name,
		Symbol:   native.Symbol,
		Decimals: native.Decimals,
		Type:     "NATIVE",
	}
}
