// Package api implements the interactive mode bound to the UI
// collaborator: a thin HTTP+WS boundary a terminal or
// web UI (out of scope) connects to. It exposes the evidence
// queries over HTTP, plan submission/authorization over HTTP, and chat
// turns over a WebSocket connection. None of the UI's own rendering is
// implemented here, only the wire boundary — the same split tarsy draws
// between its pkg/api handlers and the dashboard frontend it serves
// but does not generate.
//
// Grounded on tarsy's earlier gin-based pkg/api/server.go and
// handlers.go (before its echo v5 migration) and pkg/api/websocket.go's
// WSHub, since OdinCode's go.mod carries gin-gonic/gin and
// gorilla/websocket, not echo.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oldnordic/odincode/pkg/config"
	"github.com/oldnordic/odincode/pkg/evidence"
	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/tool"
)

// Server is the HTTP/WS boundary over one open memory handle.
type Server struct {
	engine     *gin.Engine
	cfg        *config.Config
	mem        *memory.Memory
	evidence   *evidence.Evidence
	toolCfg    tool.Config
	newAdapter func(config.LMConfig) (llmadapter.Adapter, error)
}

// NewServer builds the gin engine and registers every route. newAdapter
// is injected (rather than constructed here) so tests can substitute a
// fake adapter factory without touching config.toml or the network.
func NewServer(cfg *config.Config, mem *memory.Memory, ev *evidence.Evidence, toolCfg tool.Config, newAdapter func(config.LMConfig) (llmadapter.Adapter, error)) *Server {
	s := &Server{
		engine:     gin.New(),
		cfg:        cfg,
		mem:        mem,
		evidence:   ev,
		toolCfg:    toolCfg,
		newAdapter: newAdapter,
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Handler exposes the underlying gin engine as an http.Handler, for
// wrapping in an *http.Server or a test httptest.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	evid := s.engine.Group("/evidence")
	evid.GET("/q1", s.handleQ1)
	evid.GET("/q2", s.handleQ2)
	evid.GET("/q3", s.handleQ3)
	evid.GET("/q4", s.handleQ4)
	evid.GET("/q5", s.handleQ5)
	evid.GET("/q6", s.handleQ6)
	evid.GET("/q7", s.handleQ7)
	evid.GET("/q8", s.handleQ8)
	evid.GET("/stale-sessions", s.handleStaleSessions)

	plans := s.engine.Group("/plans")
	plans.POST("", s.handleSubmitPlan)
	plans.POST("/authorize", s.handleAuthorizePlan)

	s.engine.GET("/chat/ws", s.handleChatWS)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "lm_mode": s.cfg.LM().Mode})
}

// ctx returns the request's context, so handlers never hand a detached
// context.Background() to a store call.
func reqCtx(c *gin.Context) context.Context { return c.Request.Context() }
