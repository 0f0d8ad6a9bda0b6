package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// Call is a single contract call executed through the smart account.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Batch is a Safe transaction built from a set of calls, ready to be signed
// and executed.
type Batch struct {
	Call       Call
	Nonce      *big.Int
	SafeTxHash common.Hash
	Signature  []byte
}

// SmartAccount is the capability the orchestrator needs from a contract
// wallet: build a transaction from calls, sign it, execute it. Expressed as
// an interface so tests can substitute a deterministic fake.
type SmartAccount interface {
	Address() common.Address
	BuildTransaction(ctx context.Context, calls []Call) (*Batch, error)
	Sign(batch *Batch) error
	Execute(ctx context.Context, batch *Batch) (common.Hash, error)
}

const safeABIJSON = `[
	{"inputs":[],"name":"nonce","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"uint8","name":"operation","type":"uint8"},{"internalType":"uint256","name":"safeTxGas","type":"uint256"},{"internalType":"uint256","name":"baseGas","type":"uint256"},{"internalType":"uint256","name":"gasPrice","type":"uint256"},{"internalType":"address","name":"gasToken","type":"address"},{"internalType":"address","name":"refundReceiver","type":"address"},{"internalType":"bytes","name":"signatures","type":"bytes"}],"name":"execTransaction","outputs":[{"internalType":"bool","name":"success","type":"bool"}],"stateMutability":"payable","type":"function"}
]`

var (
	safeABI = mustParseABI(safeABIJSON)

	// EIP-712 type hashes from the Safe contracts (v1.3+ domain).
	domainSeparatorTypehash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeTxTypehash          = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// SafeAccount binds to an existing Safe contract wallet controlled by a
// single owner key (1-of-1). Conflicting transactions are serialized by the
// Safe's own on-chain nonce, which this type reads but never tracks locally.
type SafeAccount struct {
	client    *Client
	nonces    *NonceManager
	ownerKey  *ecdsa.PrivateKey
	ownerAddr common.Address
	safeAddr  common.Address
	chainID   *big.Int
	log       *logrus.Entry
}

// BindSafeAccount attaches to a deployed Safe at safeAddress, signing with
// the given owner key.
func BindSafeAccount(client *Client, nonces *NonceManager, ownerKeyHex, safeAddress string) (*SafeAccount, error) {
	if client == nil {
		return nil, errors.New("nil client")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(ownerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid owner private key: %w", err)
	}
	if !common.IsHexAddress(safeAddress) {
		return nil, fmt.Errorf("invalid safe address: %s", safeAddress)
	}
	if nonces == nil {
		nonces = NewNonceManager()
	}
	ownerAddr := crypto.PubkeyToAddress(key.PublicKey)
	return &SafeAccount{
		client:    client,
		nonces:    nonces,
		ownerKey:  key,
		ownerAddr: ownerAddr,
		safeAddr:  common.HexToAddress(safeAddress),
		chainID:   new(big.Int).SetUint64(uint64(client.ChainID())),
		log: logrus.WithFields(logrus.Fields{
			"chain": client.ChainID().String(),
			"safe":  common.HexToAddress(safeAddress).Hex(),
		}),
	}, nil
}

// Address returns the Safe contract address, which is the sender of every
// executed call and the recipient of swap proceeds.
func (a *SafeAccount) Address() common.Address { return a.safeAddr }

// BuildTransaction reads the Safe's current nonce and computes the EIP-712
// transaction hash for the batch. Batches are submitted one call at a time.
func (a *SafeAccount) BuildTransaction(ctx context.Context, calls []Call) (*Batch, error) {
	if len(calls) != 1 {
		return nil, fmt.Errorf("safe batches are submitted one call at a time, got %d calls", len(calls))
	}
	call := calls[0]
	if call.Value == nil {
		call.Value = big.NewInt(0)
	}

	nonce, err := a.safeNonce(ctx)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Call: call, Nonce: nonce}
	batch.SafeTxHash = a.safeTxHash(call, nonce)
	return batch, nil
}

// Sign produces the owner's ECDSA signature over the batch's SafeTxHash.
func (a *SafeAccount) Sign(batch *Batch) error {
	if batch == nil || batch.Nonce == nil {
		return errors.New("batch has not been built")
	}
	sig, err := crypto.Sign(batch.SafeTxHash.Bytes(), a.ownerKey)
	if err != nil {
		return fmt.Errorf("failed to sign safe transaction: %w", err)
	}
	// Safe expects the recovery byte offset by 27, as in eth_sign.
	sig[crypto.RecoveryIDOffset] += 27
	batch.Signature = sig
	return nil
}

// Execute submits execTransaction from the owner EOA and returns the
// transaction hash. The broadcast is irreversible once accepted.
func (a *SafeAccount) Execute(ctx context.Context, batch *Batch) (common.Hash, error) {
	if batch == nil || len(batch.Signature) == 0 {
		return common.Hash{}, errors.New("batch is not signed")
	}

	calldata, err := safeABI.Pack("execTransaction",
		batch.Call.To,
		batch.Call.Value,
		batch.Call.Data,
		uint8(0), // CALL
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		common.Address{},
		common.Address{},
		batch.Signature,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack execTransaction: %w", err)
	}

	gasPrice, err := a.client.suggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	gasLimit, err := a.client.estimateGas(ctx, ethereum.CallMsg{
		From: a.ownerAddr,
		To:   &a.safeAddr,
		Data: calldata,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = gasLimit * 12 / 10

	nonce, err := a.nonces.NextNonce(ctx, a.client, a.ownerAddr)
	if err != nil {
		return common.Hash{}, err
	}

	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &a.safeAddr,
		Value:    big.NewInt(0),
		Data:     calldata,
	})
	signedTx, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(a.chainID), a.ownerKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		a.nonces.Invalidate(a.client.ChainID())
		return common.Hash{}, err
	}

	a.log.Infof("📤 Submitted safe transaction %s (nonce %s)", signedTx.Hash().Hex(), batch.Nonce)
	return signedTx.Hash(), nil
}

// safeNonce reads the Safe contract's transaction nonce.
func (a *SafeAccount) safeNonce(ctx context.Context) (*big.Int, error) {
	calldata, err := safeABI.Pack("nonce")
	if err != nil {
		return nil, fmt.Errorf("failed to pack nonce call: %w", err)
	}
	resp, err := a.client.CallContract(ctx, a.safeAddr, calldata)
	if err != nil {
		return nil, fmt.Errorf("failed to read safe nonce: %w", err)
	}
	if len(resp) < 32 {
		return nil, fmt.Errorf("invalid safe nonce response length: %d", len(resp))
	}
	return new(big.Int).SetBytes(resp), nil
}

// safeTxHash computes the EIP-712 digest the owner signs:
// keccak256(0x19 || 0x01 || domainSeparator || structHash).
func (a *SafeAccount) safeTxHash(call Call, nonce *big.Int) common.Hash {
	domainSeparator := crypto.Keccak256(
		domainSeparatorTypehash.Bytes(),
		padUint(a.chainID),
		padAddress(a.safeAddr),
	)
	structHash := crypto.Keccak256(
		safeTxTypehash.Bytes(),
		padAddress(call.To),
		padUint(call.Value),
		crypto.Keccak256(call.Data),
		padUint(big.NewInt(0)), // operation: CALL
		padUint(big.NewInt(0)), // safeTxGas
		padUint(big.NewInt(0)), // baseGas
		padUint(big.NewInt(0)), // gasPrice
		padAddress(common.Address{}),
		padAddress(common.Address{}),
		padUint(nonce),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator, structHash)
}

func padAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func padUint(v *big.Int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}
