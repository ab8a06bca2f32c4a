package wsclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Transport is the minimal surface the manager needs from a websocket
// connection.
type Transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a Transport to the realtime endpoint.
type Dialer interface {
	Dial(ctx context.Context, url, credential string) (Transport, error)
}

// GorillaDialer dials with gorilla/websocket, presenting the credential as
// the token cookie the server reads during the handshake.
type GorillaDialer struct{}

func (GorillaDialer) Dial(ctx context.Context, url, credential string) (Transport, error) {
	header := http.Header{}
	if credential != "" {
		cookie := http.Cookie{Name: "token", Value: credential}
		header.Set("Cookie", cookie.String())
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}
