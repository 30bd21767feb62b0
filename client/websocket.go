package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snekpilot/autopilot"
)

// WebsocketClient keeps one connection to a remote agent. Each request is
// a text frame holding the provider input; the agent answers with one
// frame holding the command batch. A failed exchange drops the connection
// and the next call redials.
type WebsocketClient struct {
	cfg    Config
	dialer websocket.Dialer
	conn   *websocket.Conn
}

func NewWebsocketClient(cfg Config) (*WebsocketClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket provider needs a url")
	}
	return &WebsocketClient{
		cfg: cfg,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}, nil
}

func (c *WebsocketClient) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	if c.conn == nil {
		var header http.Header
		if c.cfg.Token != "" {
			header = bearer(c.cfg.Token)
		}
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
		if err != nil {
			return autopilot.Batch{}, fmt.Errorf("failed to connect: %w", err)
		}
		c.conn = conn
	}
	conn := c.conn

	if c.cfg.Timeout > 0 {
		deadline := time.Now().Add(c.cfg.Timeout)
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Time{})
		conn.SetReadDeadline(time.Time{})
	}
	// Unblock a pending read when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteJSON(in); err != nil {
		c.drop()
		return autopilot.Batch{}, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop()
		if ctx.Err() != nil {
			return autopilot.Batch{}, ctx.Err()
		}
		return autopilot.Batch{}, fmt.Errorf("%w: %v", ErrReadBody, err)
	}
	return ParseBatch(string(message))
}

// Close hangs up the current connection, if any.
func (c *WebsocketClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.drop()
	return err
}

func (c *WebsocketClient) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
