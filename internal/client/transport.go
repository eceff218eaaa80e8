package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/websocket"
)

// maxFrameSize bounds a single snapshot frame.
const maxFrameSize = 16 << 20

// ErrClosed marks a read that ended because the peer closed the connection
// cleanly rather than because the transport failed.
var ErrClosed = errors.New("client: connection closed")

// Transport is one open push-channel connection.
type Transport interface {
	// Read blocks for the next text frame. It returns an error once the
	// connection is closed or ctx is done.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebSocketDialer dials ws:// and wss:// endpoints.
type WebSocketDialer struct {
	Options *websocket.DialOptions
}

func (d WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	c, _, err := websocket.Dial(ctx, url, d.Options)
	if err != nil {
		return nil, fmt.Errorf("client.WebSocketDialer.Dial: %w", err)
	}
	c.SetReadLimit(maxFrameSize)
	return &wsTransport{conn: c}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := t.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				return nil, fmt.Errorf("%w: %w", ErrClosed, err)
			}
			return nil, err
		}
		if typ == websocket.MessageText {
			return data, nil
		}
	}
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}
