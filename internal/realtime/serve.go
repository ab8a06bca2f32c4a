package realtime

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Serve admits an upgraded, authenticated websocket connection and runs its
// pumps until the peer goes away. The caller has already resolved the
// identity; unauthenticated sockets never reach this function.
func Serve(ctx context.Context, registry *Registry, mux *Mux, ws *websocket.Conn, identity string) {
	c := NewConn(identity, ws)

	ws.SetReadLimit(maxMessageSize)
	ws.SetPongHandler(func(string) error {
		c.MarkAlive()
		return nil
	})

	registry.Admit(c)
	slog.Info("realtime connection established", "connID", c.ID(), "identity", identity)

	go c.writePump()
	go readPump(ctx, registry, mux, ws, c)
}

// readPump consumes inbound frames until the transport fails or closes,
// then deregisters. A liveness eviction racing this deregistration is fine:
// both paths end in the same removed state.
func readPump(ctx context.Context, registry *Registry, mux *Mux, ws *websocket.Conn, c *Conn) {
	defer func() {
		registry.Remove(c)
		c.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("read error", "connID", c.ID(), "identity", c.Identity(), "error", err)
			}
			return
		}

		mux.HandleFrame(ctx, c, data)
	}
}

// RejectUnauthorized closes a just-upgraded socket with the distinguished
// unauthorized close code, so the client knows retrying is futile until it
// re-authenticates. Rejected sockets never enter the registry.
func RejectUnauthorized(ws *websocket.Conn) {
	c := NewConn("", ws)
	c.CloseUnauthorized()
}
