// Package swap turns a validated swap intent into an approval/swap
// transaction pair executed through the user's Safe smart account and routed
// through Uniswap V3.
package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/wallet"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/pkg/ethutil"
)

// Reply is one outbound chat message: text plus optional structured content
// ({hash, status} for transactions, {error} for failures).
type Reply struct {
	Text    string         `json:"text"`
	Content map[string]any `json:"content,omitempty"`
}

// ReplyFunc receives replies as the workflow progresses. A swap that needs an
// approval produces two transaction replies.
type ReplyFunc func(Reply)

// ContractReader is the read/wait subset of the chain client the
// orchestrator needs.
type ContractReader interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (wallet.Receipt, error)
}

// sessionFactory opens the chain-bound client and smart account for one swap
// attempt, plus a release func closing the connection. Swapped for fakes in
// tests.
type sessionFactory func(ctx context.Context, chainID config.ChainID) (ContractReader, wallet.SmartAccount, func(), error)

// Orchestrator executes swap intents end to end. Each Execute call is an
// independent, at-most-once workflow; concurrent calls share only the token
// registry cache and the owner nonce manager.
type Orchestrator struct {
	cfg         *config.Config
	registry    *registry.Registry
	openSession sessionFactory
	log         *logrus.Entry
}

// NewOrchestrator wires the orchestrator against real chain clients and the
// user's Safe.
func NewOrchestrator(cfg *config.Config, reg *registry.Registry) *Orchestrator {
	nonces := wallet.NewNonceManager()
	o := &Orchestrator{
		cfg:      cfg,
		registry: reg,
		log:      logrus.WithField("component", "swap"),
	}
	o.openSession = func(ctx context.Context, chainID config.ChainID) (ContractReader, wallet.SmartAccount, func(), error) {
		client, err := wallet.Dial(ctx, chainID, cfg.ReceiptTimeout)
		if err != nil {
			return nil, nil, nil, err
		}
		account, err := wallet.BindSafeAccount(client, nonces, cfg.SafeOwnerKey, cfg.SafeAddress)
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		return client, account, client.Close, nil
	}
	return o
}

// Configured reports whether the Safe secrets needed to execute swaps are
// present. When false the action is not offered at all.
func (o *Orchestrator) Configured() bool {
	return o.cfg.HasSigner()
}

// Execute runs one swap attempt: validate the intent, resolve tokens, ensure
// the router allowance, submit the swap, report the outcome. Every failure is
// converted into a user-facing reply; the returned error is the structured
// failure for callers that want to inspect it.
func (o *Orchestrator) Execute(ctx context.Context, intent Intent, reply ReplyFunc) error {
	if reply == nil {
		reply = func(Reply) {}
	}

	if !o.Configured() {
		return failf(FailConfigurationMissing, "SAFE_OWNER_PRIVATE_KEY and SAFE_ADDRESS must be set")
	}

	if missing := intent.MissingFields(); len(missing) > 0 {
		described := strings.Join(missing, " and ")
		reply(Reply{Text: fmt.Sprintf("Need more information about the swap. Please provide me %s", described)})
		return failf(FailMissingFields, "intent is missing %s", described)
	}

	chainName := *intent.Chain
	chainID, ok := config.ParseChain(chainName)
	if !ok {
		reply(Reply{Text: fmt.Sprintf("Unsupported chain: %s. Supported chains are: %s",
			chainName, strings.Join(config.SupportedChainNames(), ", "))})
		return failf(FailUnsupportedChain, "unknown chain %q", chainName)
	}

	if !o.registry.IsChainSupported(chainID) {
		reply(Reply{Text: fmt.Sprintf("Chain %s is not supported for token swaps.", chainName)})
		return failf(FailUnsupportedChain, "chain %s not in registry", chainID)
	}
	if err := o.registry.InitializeChain(ctx, chainID); err != nil {
		return o.transportFailure(reply, err)
	}

	sellToken, sellOK := o.registry.TokenBySymbol(*intent.SellTokenSymbol, chainID)
	buyToken, buyOK := o.registry.TokenBySymbol(*intent.BuyTokenSymbol, chainID)
	if !sellOK || !buyOK {
		var missing []string
		if !sellOK {
			missing = append(missing, fmt.Sprintf("'%s'", *intent.SellTokenSymbol))
		}
		if !buyOK {
			missing = append(missing, fmt.Sprintf("'%s'", *intent.BuyTokenSymbol))
		}
		plural := ""
		if len(missing) > 1 {
			plural = "s"
		}
		reply(Reply{Text: fmt.Sprintf("Token%s %s not found on %s. Please check the token symbols and chain.",
			plural, strings.Join(missing, " and "), chainName)})
		return failf(FailTokenNotFound, "unresolved token%s %s on %s", plural, strings.Join(missing, " and "), chainID)
	}

	// The native asset has no ERC-20 allowance or approve path; the router
	// only swaps contract tokens.
	if sellToken.IsNative() || buyToken.IsNative() {
		reply(Reply{Text: fmt.Sprintf("The native asset %s can't be swapped directly. Please use the wrapped token instead.",
			nativeSymbol(sellToken, buyToken))})
		return failf(FailNativeAsset, "native asset on %s", chainID)
	}

	amountIn, err := ethutil.ParseUnits(ethutil.FloatString(*intent.SellAmount), sellToken.Decimals)
	if err != nil || amountIn.Sign() <= 0 {
		reply(Reply{Text: fmt.Sprintf("Invalid sell amount %s for %s.", ethutil.FloatString(*intent.SellAmount), sellToken.Symbol)})
		return failf(FailInvalidAmount, "cannot scale %v to %d decimals", *intent.SellAmount, sellToken.Decimals)
	}

	o.log.WithFields(logrus.Fields{
		"chain":     chainID.String(),
		"sellToken": sellToken.Symbol,
		"buyToken":  buyToken.Symbol,
		"amountIn":  amountIn.String(),
	}).Infof("🔵 Swapping %s %s for %s on %s",
		ethutil.FormatTokenAmount(amountIn, sellToken.Decimals), sellToken.Symbol, buyToken.Symbol, chainID)

	client, account, release, err := o.openSession(ctx, chainID)
	if err != nil {
		return o.transportFailure(reply, err)
	}
	defer release()

	router := config.UniswapV3SwapRouter[chainID]
	safeAddr := account.Address()
	sellTokenAddr := common.HexToAddress(sellToken.Address)

	allowance, err := o.readAllowance(ctx, client, sellTokenAddr, safeAddr, router)
	if err != nil {
		return o.transportFailure(reply, err)
	}

	if allowance.Cmp(amountIn) < 0 {
		approveData, err := packApprove(router, amountIn)
		if err != nil {
			return o.transportFailure(reply, err)
		}
		receipt, err := o.submit(ctx, client, account, wallet.Call{
			To:    sellTokenAddr,
			Value: big.NewInt(0),
			Data:  approveData,
		})
		if err != nil {
			return o.transportFailure(reply, err)
		}
		explorerURL := config.ExplorerTxURL(chainID, receipt.TxHash.Hex())
		if !receipt.Succeeded() {
			reply(Reply{
				Text:    fmt.Sprintf("❌ Approve transaction failed! Check transaction: %s", explorerURL),
				Content: map[string]any{"hash": receipt.TxHash.Hex(), "status": receipt.Status},
			})
			return failf(FailApprovalReverted, "approval %s reverted", receipt.TxHash.Hex())
		}
		reply(Reply{
			Text:    fmt.Sprintf("✅ Approve transaction executed successfully!\nView on Explorer: %s", explorerURL),
			Content: map[string]any{"hash": receipt.TxHash.Hex(), "status": receipt.Status},
		})
	} else {
		reply(Reply{Text: "✅ Approve transaction already executed!"})
	}

	// amountOutMinimum stays at zero: no slippage protection is enforced
	// here, any price check happens upstream of the intent.
	swapData, err := packExactInputSingle(ExactInputSingleParams{
		TokenIn:           sellTokenAddr,
		TokenOut:          common.HexToAddress(buyToken.Address),
		Fee:               feeMedium,
		Recipient:         safeAddr,
		AmountIn:          amountIn,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return o.transportFailure(reply, err)
	}

	receipt, err := o.submit(ctx, client, account, wallet.Call{
		To:    router,
		Value: big.NewInt(0),
		Data:  swapData,
	})
	if err != nil {
		return o.transportFailure(reply, err)
	}

	explorerURL := config.ExplorerTxURL(chainID, receipt.TxHash.Hex())
	if !receipt.Succeeded() {
		reply(Reply{
			Text: strings.Join([]string{
				fmt.Sprintf("❌ Swap transaction failed! Check transaction: %s", explorerURL),
				fmt.Sprintf("Allowed tokens: %s", strings.Join(config.AllowedTokens[chainID], ", ")),
			}, "\n"),
			Content: map[string]any{"hash": receipt.TxHash.Hex(), "status": receipt.Status},
		})
		return failf(FailSwapReverted, "swap %s reverted", receipt.TxHash.Hex())
	}

	reply(Reply{
		Text:    fmt.Sprintf("✅ Swap transaction executed successfully!\nView on Explorer: %s", explorerURL),
		Content: map[string]any{"hash": receipt.TxHash.Hex(), "status": receipt.Status},
	})
	o.log.Infof("✅ Swap complete: %s", receipt.TxHash.Hex())
	return nil
}

// readAllowance reads allowance(owner, spender) from the sell token contract.
func (o *Orchestrator) readAllowance(ctx context.Context, client ContractReader, token, owner, spender common.Address) (*big.Int, error) {
	calldata, err := packAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	resp, err := client.CallContract(ctx, token, calldata)
	if err != nil {
		return nil, fmt.Errorf("allowance call failed: %w", err)
	}
	if len(resp) < 32 {
		return nil, fmt.Errorf("invalid allowance response length: %d", len(resp))
	}
	return new(big.Int).SetBytes(resp), nil
}

// submit builds, signs, executes one call through the smart account and
// waits for its receipt.
func (o *Orchestrator) submit(ctx context.Context, client ContractReader, account wallet.SmartAccount, call wallet.Call) (wallet.Receipt, error) {
	batch, err := account.BuildTransaction(ctx, []wallet.Call{call})
	if err != nil {
		return wallet.Receipt{}, err
	}
	if err := account.Sign(batch); err != nil {
		return wallet.Receipt{}, err
	}
	txHash, err := account.Execute(ctx, batch)
	if err != nil {
		return wallet.Receipt{}, err
	}
	o.log.Infof("⏳ Waiting for receipt %s", txHash.Hex())
	return client.WaitForReceipt(ctx, txHash)
}

// transportFailure converts a lower-layer error into the generic failure
// reply, decoding guard revert data when possible.
func (o *Orchestrator) transportFailure(reply ReplyFunc, err error) error {
	described := describeError(err)
	o.log.WithError(err).Error("Swap execution failed")
	reply(Reply{
		Text:    fmt.Sprintf("❌ Failed to execute swap: %s", described),
		Content: map[string]any{"error": described},
	})
	return failf(FailTransport, "%s", described)
}

func nativeSymbol(sellToken, buyToken registry.Token) string {
	if sellToken.IsNative() {
		return sellToken.Symbol
	}
	return buyToken.Symbol
}
