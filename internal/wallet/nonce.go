package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
)

// NonceManager hands out owner EOA nonces per chain so concurrent swap
// attempts sharing one owner key do not collide. The Safe's own transaction
// nonce is a separate, on-chain concern.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[config.ChainID]uint64
	known  map[config.ChainID]bool
}

// NewNonceManager creates an empty nonce manager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		nonces: make(map[config.ChainID]uint64),
		known:  make(map[config.ChainID]bool),
	}
}

// NextNonce returns the next available owner nonce for the client's chain,
// initializing from the network on first use.
func (nm *NonceManager) NextNonce(ctx context.Context, client *Client, owner common.Address) (uint64, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	chainID := client.ChainID()
	if !nm.known[chainID] {
		nonce, err := client.pendingNonceAt(ctx, owner)
		if err != nil {
			return 0, fmt.Errorf("failed to get pending nonce on %s: %w", chainID, err)
		}
		nm.nonces[chainID] = nonce
		nm.known[chainID] = true
	}

	nonce := nm.nonces[chainID]
	nm.nonces[chainID]++
	return nonce, nil
}

// Invalidate drops the cached nonce for a chain so the next allocation
// re-reads it from the network. Called after a failed broadcast.
func (nm *NonceManager) Invalidate(chainID config.ChainID) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, chainID)
	nm.known[chainID] = false
}
