package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/swap"
)

type fakeExecutor struct {
	configured bool
	replies    []swap.Reply
	err        error
	got        *swap.Intent
}

func (f *fakeExecutor) Configured() bool { return f.configured }

func (f *fakeExecutor) Execute(_ context.Context, intent swap.Intent, reply swap.ReplyFunc) error {
	f.got = &intent
	for _, r := range f.replies {
		reply(r)
	}
	return f.err
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := NewServer(&fakeExecutor{configured: true}, registry.New())
	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["swapEnabled"])
}

func TestSwapEndpoint(t *testing.T) {
	t.Run("unconfigured action returns 503", func(t *testing.T) {
		srv := NewServer(&fakeExecutor{configured: false}, registry.New())
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/actions/swap",
			`{"sellTokenSymbol":"USDC","sellAmount":1.5,"buyTokenSymbol":"WETH","chain":"arbitrum"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		srv := NewServer(&fakeExecutor{configured: true}, registry.New())
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/actions/swap", `{"sellAmount":"not-a-number"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success returns ordered replies", func(t *testing.T) {
		executor := &fakeExecutor{
			configured: true,
			replies: []swap.Reply{
				{Text: "✅ Approve transaction already executed!"},
				{Text: "✅ Swap transaction executed successfully!", Content: map[string]any{"hash": "0xabc", "status": "success"}},
			},
		}
		srv := NewServer(executor, registry.New())
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/actions/swap",
			`{"sellTokenSymbol":"USDC","sellAmount":1.5,"buyTokenSymbol":"WETH","chain":"arbitrum"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var body swapResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.OK)
		require.Len(t, body.Replies, 2)
		assert.Equal(t, "✅ Approve transaction already executed!", body.Replies[0].Text)
		assert.Equal(t, "0xabc", body.Replies[1].Content["hash"])

		require.NotNil(t, executor.got)
		assert.Equal(t, "USDC", *executor.got.SellTokenSymbol)
		assert.Equal(t, 1.5, *executor.got.SellAmount)
	})

	t.Run("workflow failure returns 422 with partial replies", func(t *testing.T) {
		executor := &fakeExecutor{
			configured: true,
			replies:    []swap.Reply{{Text: "Unsupported chain: bitcoin. Supported chains are: arbitrum, avalanche, celo, linea, optimism"}},
			err:        &swap.Failure{Kind: swap.FailUnsupportedChain, Message: "unknown chain"},
		}
		srv := NewServer(executor, registry.New())
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/actions/swap",
			`{"sellTokenSymbol":"USDC","sellAmount":1.5,"buyTokenSymbol":"WETH","chain":"bitcoin"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body swapResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.OK)
		require.Len(t, body.Replies, 1)
		assert.Contains(t, body.Replies[0].Text, "Unsupported chain: bitcoin")
	})
}

func TestChainsEndpoint(t *testing.T) {
	srv := NewServer(&fakeExecutor{configured: true}, registry.New())
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/chains", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Chains []chainInfo `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Chains, 5)
	assert.Equal(t, "arbitrum", body.Chains[0].Name)
	assert.EqualValues(t, 42161, body.Chains[0].ChainID)
	assert.NotEmpty(t, body.Chains[0].AllowedTokens)
}

func TestChainTokensEndpointUnknownChain(t *testing.T) {
	srv := NewServer(&fakeExecutor{configured: true}, registry.New())
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/chains/bitcoin/tokens", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
