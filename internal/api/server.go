// Package api exposes the swap action over HTTP for the chat runtime.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/config"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/registry"
	"github.com/aviggiano/safe-restricted-actions-guard-agi-broker-bot/internal/swap"
)

// SwapExecutor is the slice of the orchestrator the handlers need.
type SwapExecutor interface {
	Configured() bool
	Execute(ctx context.Context, intent swap.Intent, reply swap.ReplyFunc) error
}

// Server serves the action endpoints.
type Server struct {
	executor SwapExecutor
	registry *registry.Registry
	engine   *gin.Engine
	log      *logrus.Entry
}

// swapResponse is the envelope returned by the swap endpoint. Replies are
// ordered as the user would have received them in chat.
type swapResponse struct {
	OK      bool         `json:"ok"`
	Replies []swap.Reply `json:"replies"`
	Error   string       `json:"error,omitempty"`
}

type chainInfo struct {
	Name          string   `json:"name"`
	ChainID       uint64   `json:"chainId"`
	AllowedTokens []string `json:"allowedTokens"`
}

// NewServer builds the HTTP surface around the orchestrator.
func NewServer(executor SwapExecutor, reg *registry.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		executor: executor,
		registry: reg,
		log:      logrus.WithField("component", "api"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", s.handleHealth)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/actions/swap", s.handleSwap)
		v1.GET("/chains", s.handleChains)
		v1.GET("/chains/:chain/tokens", s.handleChainTokens)
	}

	s.engine = engine
	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("🌐 Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "swapEnabled": s.executor.Configured()})
}

// handleSwap runs one swap intent and returns every chat reply it produced.
// The HTTP status mirrors the terminal outcome: 200 on success, 422 on a
// user-correctable failure, 503 when the action is not configured.
func (s *Server) handleSwap(c *gin.Context) {
	if !s.executor.Configured() {
		c.JSON(http.StatusServiceUnavailable, swapResponse{
			OK:    false,
			Error: "swap action is not configured",
		})
		return
	}

	var intent swap.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, swapResponse{OK: false, Error: "malformed swap intent: " + err.Error()})
		return
	}

	var replies []swap.Reply
	err := s.executor.Execute(c.Request.Context(), intent, func(r swap.Reply) {
		replies = append(replies, r)
	})
	if err != nil {
		s.log.WithError(err).Warn("Swap request failed")
		c.JSON(http.StatusUnprocessableEntity, swapResponse{OK: false, Replies: replies, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, swapResponse{OK: true, Replies: replies})
}

func (s *Server) handleChains(c *gin.Context) {
	chains := make([]chainInfo, 0, len(config.SupportedChainNames()))
	for _, name := range config.SupportedChainNames() {
		chainID, _ := config.ParseChain(name)
		chains = append(chains, chainInfo{
			Name:          name,
			ChainID:       uint64(chainID),
			AllowedTokens: config.AllowedTokens[chainID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// handleChainTokens lists the indexed tokens for one chain, loading its token
// list on first use.
func (s *Server) handleChainTokens(c *gin.Context) {
	chainID, ok := config.ParseChain(c.Param("chain"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chain: " + c.Param("chain")})
		return
	}
	if err := s.registry.InitializeChain(c.Request.Context(), chainID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chain":  chainID.String(),
		"tokens": s.registry.ChainTokens(chainID),
	})
}
