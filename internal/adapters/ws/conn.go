package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteControl(mt int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens the outbound connection.
type Dialer interface {
	Dial(ctx context.Context, address string) (WSConn, error)
}

// DialerFunc adapts a plain function to Dialer.
type DialerFunc func(ctx context.Context, address string) (WSConn, error)

func (f DialerFunc) Dial(ctx context.Context, address string) (WSConn, error) {
	return f(ctx, address)
}

type gorillaDialer struct {
	d *websocket.Dialer
}

// NewDialer returns a gorilla/websocket dialer. A zero handshakeTimeout means
// the handshake is bounded only by the dial context.
func NewDialer(handshakeTimeout time.Duration) Dialer {
	return gorillaDialer{d: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}}
}

func (g gorillaDialer) Dial(ctx context.Context, address string) (WSConn, error) {
	conn, resp, err := g.d.DialContext(ctx, address, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}
