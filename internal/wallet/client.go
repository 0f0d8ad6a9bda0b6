// Package wallet provides chain-bound transaction clients and the Safe smart
// account used to execute swaps on the user's behalf.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
)

// Receipt statuses surfaced to callers.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash common.Hash
	Status string
}

// Succeeded reports whether the transaction executed without reverting.
func (r Receipt) Succeeded() bool { return r.Status == StatusSuccess }

// Client is an EVM client bound to a single supported chain.
type Client struct {
	chainID        config.ChainID
	eth            *ethclient.Client
	receiptTimeout time.Duration
	pollInterval   time.Duration
	log            *logrus.Entry
}

// Dial connects to the chain's configured RPC endpoint. Fails with an
// unsupported-chain error when the chain has no configuration entry.
func Dial(ctx context.Context, chainID config.ChainID, receiptTimeout time.Duration) (*Client, error) {
	rpcURL, err := config.RPCURL(chainID)
	if err != nil {
		return nil, err
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s RPC: %w", chainID, err)
	}
	if receiptTimeout <= 0 {
		receiptTimeout = 3 * time.Minute
	}
	return &Client{
		chainID:        chainID,
		eth:            eth,
		receiptTimeout: receiptTimeout,
		pollInterval:   2 * time.Second,
		log:            logrus.WithField("chain", chainID.String()),
	}, nil
}

// ChainID returns the chain this client is bound to.
func (c *Client) ChainID() config.ChainID { return c.chainID }

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// CallContract performs a read-only contract call.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	resp, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call to %s failed: %w", to.Hex(), err)
	}
	return resp, nil
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *coretypes.Transaction) error {
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return nil
}

// WaitForReceipt polls until the transaction is mined or the receipt timeout
// elapses. A mined-but-reverted transaction returns a failed receipt, not an
// error.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			status := StatusFailed
			if receipt.Status == coretypes.ReceiptStatusSuccessful {
				status = StatusSuccess
			}
			return Receipt{TxHash: receipt.TxHash, Status: status}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return Receipt{}, fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("timed out waiting for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) pendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, addr)
}

func (c *Client) suggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) estimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.eth.EstimateGas(ctx, msg)
}
