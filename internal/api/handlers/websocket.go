package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"docaudit/internal/api/middleware"
	"docaudit/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The handshake is authenticated by the session cookie; the
		// browser cannot be tricked into a useful cross-origin socket.
		return true
	},
}

type WSHandler struct {
	registry *realtime.Registry
	mux      *realtime.Mux
	resolver middleware.TokenResolver
	authMW   *middleware.AuthMiddleware
}

func NewWSHandler(registry *realtime.Registry, mux *realtime.Mux, resolver middleware.TokenResolver, authMW *middleware.AuthMiddleware) *WSHandler {
	return &WSHandler{
		registry: registry,
		mux:      mux,
		resolver: resolver,
		authMW:   authMW,
	}
}

// HandleWebSocket upgrades the request and authenticates the handshake.
// The upgrade happens first so a rejection can carry the application-level
// unauthorized close code instead of a plain HTTP status.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := h.authMW.CredentialFrom(c.Request)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := h.resolver.ResolveToken(ctx, token)
	if err != nil {
		slog.Info("websocket handshake rejected", "error", err)
		realtime.RejectUnauthorized(ws)
		return
	}

	// The upgraded socket outlives this handler, so it gets a fresh
	// context rather than the request's.
	realtime.Serve(context.Background(), h.registry, h.mux, ws, user.Username)
}
