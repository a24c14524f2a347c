package peer

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Envelope
	outgoing  chan *signaling.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new signaling client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *signaling.Envelope, 16),
		outgoing:  make(chan *signaling.Envelope, 16),
		done:      make(chan struct{}),
	}
}

// Connect establishes WebSocket connection to the server.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return NewError("connect to server", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads envelopes from the WebSocket connection. Frames that do not
// decode are skipped, the same way the server treats them.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		env, err := signaling.DecodeEnvelope(data)
		if err != nil {
			continue
		}

		select {
		case c.incoming <- env:
		case <-c.done:
			return
		}
	}
}

// writePump writes envelopes to the WebSocket connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case env := <-c.outgoing:
			data, err := env.Encode()
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// Send queues an envelope for the server.
func (c *Client) Send(env *signaling.Envelope) error {
	select {
	case c.outgoing <- env:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	}
}

// Request asks the server to pair this connection under password. An empty
// password keeps the one the server issued.
func (c *Client) Request(password string) error {
	return c.Send(signaling.NewEnvelope(signaling.MessageTypeConnectionRequest, password))
}

// Incoming returns the channel for receiving envelopes. It is closed when
// the connection drops.
func (c *Client) Incoming() <-chan *signaling.Envelope {
	return c.incoming
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
