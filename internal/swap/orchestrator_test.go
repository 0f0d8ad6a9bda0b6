package swap

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/wallet"
)

const (
	fixtureUSDC = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	fixtureWETH = "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"
	fixtureSafe = "0x1111111111111111111111111111111111111111"
)

const arbitrumFixture = `{
  "name": "Trust Wallet: Arbitrum",
  "tokens": [
    {"address": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "name": "USD Coin", "symbol": "USDC", "decimals": 6, "type": "ARBITRUM"},
    {"address": "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", "name": "Wrapped Ether", "symbol": "WETH", "decimals": 18, "type": "ARBITRUM"}
  ]
}`

// fakeSession stands in for both the chain client and the safe account, so a
// test can script allowances and receipt statuses without a node.
type fakeSession struct {
	allowance *big.Int
	statuses  []string
	execErr   error

	reads     []common.Address
	submitted []wallet.Call
	waits     int
}

func (s *fakeSession) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	s.reads = append(s.reads, to)
	if len(data) < 4 || !hasSelector(data, erc20ABI.Methods["allowance"].ID) {
		return nil, fmt.Errorf("unexpected read: %s", hexutil.Encode(data))
	}
	return common.LeftPadBytes(s.allowance.Bytes(), 32), nil
}

func hasSelector(data, id []byte) bool {
	return len(data) >= 4 && string(data[:4]) == string(id)
}

func (s *fakeSession) WaitForReceipt(_ context.Context, txHash common.Hash) (wallet.Receipt, error) {
	status := wallet.StatusSuccess
	if s.waits < len(s.statuses) {
		status = s.statuses[s.waits]
	}
	s.waits++
	return wallet.Receipt{TxHash: txHash, Status: status}, nil
}

func (s *fakeSession) Address() common.Address { return common.HexToAddress(fixtureSafe) }

func (s *fakeSession) BuildTransaction(_ context.Context, calls []wallet.Call) (*wallet.Batch, error) {
	if len(calls) != 1 {
		return nil, fmt.Errorf("expected one call, got %d", len(calls))
	}
	return &wallet.Batch{Call: calls[0], Nonce: big.NewInt(int64(len(s.submitted)))}, nil
}

func (s *fakeSession) Sign(batch *wallet.Batch) error {
	batch.Signature = []byte{0x01}
	return nil
}

func (s *fakeSession) Execute(_ context.Context, batch *wallet.Batch) (common.Hash, error) {
	if s.execErr != nil {
		return common.Hash{}, s.execErr
	}
	s.submitted = append(s.submitted, batch.Call)
	return common.BigToHash(big.NewInt(int64(len(s.submitted)))), nil
}

func testOrchestrator(t *testing.T, session *fakeSession) (*Orchestrator, *[]Reply, ReplyFunc) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(arbitrumFixture))
	}))
	t.Cleanup(srv.Close)

	reg := registry.New(registry.WithSources(map[config.ChainID]config.TokenListSource{
		config.Arbitrum: {URL: srv.URL, Format: config.ListFormatTrustWallet},
	}))

	o := &Orchestrator{
		cfg: &config.Config{
			SafeOwnerKey: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
			SafeAddress:  fixtureSafe,
		},
		registry: reg,
		log:      logrus.WithField("component", "swap"),
		openSession: func(context.Context, config.ChainID) (ContractReader, wallet.SmartAccount, func(), error) {
			return session, session, func() {}, nil
		},
	}

	replies := &[]Reply{}
	record := func(r Reply) { *replies = append(*replies, r) }
	return o, replies, record
}

func usdcToWeth(amount float64, chain string) Intent {
	return Intent{
		SellTokenSymbol: strPtr("USDC"),
		SellAmount:      floatPtr(amount),
		BuyTokenSymbol:  strPtr("WETH"),
		Chain:           strPtr(chain),
	}
}

func requireFailure(t *testing.T, err error, kind FailureKind) {
	t.Helper()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, kind, failure.Kind)
}

func TestExecuteRequiresConfiguration(t *testing.T) {
	o, replies, record := testOrchestrator(t, &fakeSession{allowance: big.NewInt(0)})
	o.cfg = &config.Config{}

	err := o.Execute(context.Background(), usdcToWeth(1.5, "arbitrum"), record)
	requireFailure(t, err, FailConfigurationMissing)
	assert.Empty(t, *replies)
}

func TestExecuteMissingFields(t *testing.T) {
	o, replies, record := testOrchestrator(t, &fakeSession{allowance: big.NewInt(0)})

	err := o.Execute(context.Background(), Intent{SellTokenSymbol: strPtr("USDC")}, record)
	requireFailure(t, err, FailMissingFields)
	require.Len(t, *replies, 1)
	assert.Equal(t, "Need more information about the swap. Please provide me buy token and sell amount and chain", (*replies)[0].Text)
}

func TestExecuteUnsupportedChain(t *testing.T) {
	o, replies, record := testOrchestrator(t, &fakeSession{allowance: big.NewInt(0)})

	err := o.Execute(context.Background(), usdcToWeth(1.5, "bitcoin"), record)
	requireFailure(t, err, FailUnsupportedChain)
	require.Len(t, *replies, 1)
	assert.Equal(t, "Unsupported chain: bitcoin. Supported chains are: arbitrum, avalanche, celo, linea, optimism", (*replies)[0].Text)
}

func TestExecuteTokenNotFound(t *testing.T) {
	t.Run("one unknown token", func(t *testing.T) {
		o, replies, record := testOrchestrator(t, &fakeSession{allowance: big.NewInt(0)})
		intent := usdcToWeth(1.5, "arbitrum")
		intent.BuyTokenSymbol = strPtr("DOGE")

		err := o.Execute(context.Background(), intent, record)
		requireFailure(t, err, FailTokenNotFound)
		require.Len(t, *replies, 1)
		assert.Equal(t, "Token 'DOGE' not found on arbitrum. Please check the token symbols and chain.", (*replies)[0].Text)
	})

	t.Run("both tokens unknown", func(t *testing.T) {
		o, replies, record := testOrchestrator(t, &fakeSession{allowance: big.NewInt(0)})
		intent := usdcToWeth(1.5, "arbitrum")
		intent.SellTokenSymbol = strPtr("ABC")
		intent.BuyTokenSymbol = strPtr("XYZ")

		err := o.Execute(context.Background(), intent, record)
		requireFailure(t, err, FailTokenNotFound)
		require.Len(t, *replies, 1)
		assert.Equal(t, "Tokens 'ABC' and 'XYZ' not found on arbitrum. Please check the token symbols and chain.", (*replies)[0].Text)
	})
}

func TestExecuteRejectsNativeAsset(t *testing.T) {
	session := &fakeSession{allowance: big.NewInt(0)}
	o, replies, record := testOrchestrator(t, session)
	intent := usdcToWeth(1.5, "arbitrum")
	intent.SellTokenSymbol = strPtr("ETH")

	err := o.Execute(context.Background(), intent, record)
	requireFailure(t, err, FailNativeAsset)
	require.Len(t, *replies, 1)
	assert.Contains(t, (*replies)[0].Text, "native asset ETH")
	assert.Empty(t, session.submitted)
}

func TestExecuteSkipsApprovalWhenAllowanceSuffices(t *testing.T) {
	session := &fakeSession{allowance: big.NewInt(2_000_000)}
	o, replies, record := testOrchestrator(t, session)

	require.NoError(t, o.Execute(context.Background(), usdcToWeth(1.5, "arbitrum"), record))

	require.Len(t, session.reads, 1)
	assert.Equal(t, common.HexToAddress(fixtureUSDC), session.reads[0], "allowance is read from the sell token")

	require.Len(t, session.submitted, 1, "a sufficient allowance skips the approval")
	swapCall := session.submitted[0]
	assert.Equal(t, config.UniswapV3SwapRouter[config.Arbitrum], swapCall.To)

	params, err := decodeExactInputSingle(swapCall.Data)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(fixtureUSDC), params.TokenIn)
	assert.Equal(t, common.HexToAddress(fixtureWETH), params.TokenOut)
	assert.Equal(t, common.HexToAddress(fixtureSafe), params.Recipient)
	assert.Equal(t, "1500000", params.AmountIn.String(), "1.5 USDC in base units")
	assert.Zero(t, params.AmountOutMinimum.Sign())

	require.Len(t, *replies, 2)
	assert.Equal(t, "✅ Approve transaction already executed!", (*replies)[0].Text)
	assert.Contains(t, (*replies)[1].Text, "✅ Swap transaction executed successfully!")
	assert.Contains(t, (*replies)[1].Text, "https://arbiscan.io/tx/")
	assert.Equal(t, wallet.StatusSuccess, (*replies)[1].Content["status"])
	assert.NotEmpty(t, (*replies)[1].Content["hash"])
}

func TestExecuteApprovesBeforeSwapping(t *testing.T) {
	session := &fakeSession{allowance: big.NewInt(0)}
	o, replies, record := testOrchestrator(t, session)

	require.NoError(t, o.Execute(context.Background(), usdcToWeth(1.5, "arbitrum"), record))

	require.Len(t, session.submitted, 2)
	approveCall := session.submitted[0]
	assert.Equal(t, common.HexToAddress(fixtureUSDC), approveCall.To, "approval targets the sell token")
	assert.True(t, hasSelector(approveCall.Data, erc20ABI.Methods["approve"].ID))
	assert.Equal(t, config.UniswapV3SwapRouter[config.Arbitrum], session.submitted[1].To)

	require.Len(t, *replies, 2)
	assert.Contains(t, (*replies)[0].Text, "✅ Approve transaction executed successfully!")
	assert.Contains(t, (*replies)[0].Text, "View on Explorer: https://arbiscan.io/tx/")
	assert.Contains(t, (*replies)[1].Text, "✅ Swap transaction executed successfully!")
}

func TestExecuteStopsOnRevertedApproval(t *testing.T) {
	session := &fakeSession{allowance: big.NewInt(0), statuses: []string{wallet.StatusFailed}}
	o, replies, record := testOrchestrator(t, session)

	err := o.Execute(context.Background(), usdcToWeth(1.5, "arbitrum"), record)
	requireFailure(t, err, FailApprovalReverted)

	require.Len(t, session.submitted, 1, "the swap is never submitted after a failed approval")
	require.Len(t, *replies, 1)
	assert.Contains(t, (*replies)[0].Text, "❌ Approve transaction failed! Check transaction: https://arbiscan.io/tx/")
	assert.Equal(t, wallet.StatusFailed, (*replies)[0].Content["status"])
}

func TestExecuteReportsRevertedSwap(t *testing.T) {
	session := &fakeSession{allowance: big.NewInt(2_000_000), statuses: []string{wallet.StatusFailed}}
	o, replies, record := testOrchestrator(t, session)

	err := o.Execute(context.Background(), usdcToWeth(1.5, "arbitrum"), record)
	requireFailure(t, err, FailSwapReverted)

	require.Len(t, *replies, 2)
	failure := (*replies)[1]
	assert.Contains(t, failure.Text, "❌ Swap transaction failed! Check transaction: https://arbiscan.io/tx/")
	assert.Contains(t, failure.Text, "Allowed tokens: "+strings.Join(config.AllowedTokens[config.Arbitrum], ", "))
	assert.Equal(t, wallet.StatusFailed, failure.Content["status"])
}

func TestExecuteDecodesGuardRevert(t *testing.T) {
	revert := encodeGuardError(t, "TargetNotAllowed", common.HexToAddress("0x3333333333333333333333333333333333333333"))
	session := &fakeSession{
		allowance: big.NewInt(2_000_000),
		execErr:   &rpcError{msg: "execution reverted", data: hexutil.Encode(revert)},
	}
	o, replies, record := testOrchestrator(t, session)

	err := o.Execute(context.Background(), usdcToWeth(1.5, "arbitrum"), record)
	requireFailure(t, err, FailTransport)

	require.Len(t, *replies, 2)
	failure := (*replies)[1]
	assert.Equal(t, "❌ Failed to execute swap: TargetNotAllowed(0x3333333333333333333333333333333333333333)", failure.Text)
	assert.Equal(t, "TargetNotAllowed(0x3333333333333333333333333333333333333333)", failure.Content["error"])
}
