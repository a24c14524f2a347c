package signaling

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	DefaultPongWait = 60 * time.Second

	// Must be less than the pong wait.
	DefaultPingInterval = (DefaultPongWait * 9) / 10

	// Enough for SDP offers with a full candidate list.
	DefaultMaxMessageSize = 64 * 1024

	DefaultSendQueue = 256
)

// Client is one signaling connection. It is owned by the goroutines running
// ReadPump and WritePump; the registry only keeps a reference to it.
type Client struct {
	ID uuid.UUID

	hub  *Hub
	conn *websocket.Conn
	log  zerolog.Logger

	// send is a buffered channel for all outbound envelopes. WritePump is
	// its only reader.
	send chan *Envelope

	done      chan struct{}
	closeOnce sync.Once

	// password is the current session key: the issued password until a
	// ConnectionRequest names another. joined reports whether the client is
	// a member of the registry entry for it. Both are only touched by the
	// ReadPump goroutine.
	password string
	joined   bool
}

func newClient(hub *Hub, conn *websocket.Conn, queue int) *Client {
	id := uuid.New()
	logger := hub.log.With().Str("conn", id.String()).Logger()
	if conn != nil {
		logger = logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	}

	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		log:  logger,
		send: make(chan *Envelope, queue),
		done: make(chan struct{}),
	}
}

// Password returns the client's current session key.
func (c *Client) Password() string {
	return c.password
}

// Deliver queues env for the client without blocking.
func (c *Client) Deliver(env *Envelope) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendQueueFull
	}
}

// Close asks WritePump to send a close frame and drop the connection. The
// registry cleanup runs when ReadPump notices the closed connection. Safe
// to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the client starts shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump pumps envelopes from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine. Every way out of the loop goes through the
// deferred unregister, so registry state is released exactly once.
func (c *Client) ReadPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	if c.hub.opts.PongWait > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
			return nil
		})
	}

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("read failed")
			} else {
				c.log.Debug().Err(err).Msg("connection closed")
			}
			return
		}

		if msgType != websocket.TextMessage {
			c.hub.metrics.recordDropped(DropReasonBinary)
			continue
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			if len(data) > 0 && !isBlank(data) {
				c.hub.metrics.recordDropped(DropReasonMalformed)
				c.log.Debug().Err(err).Msg("ignoring frame")
			}
			continue
		}

		c.log.Debug().Str("type", env.Type).Int("bytes", len(data)).Msg("received")
		c.hub.metrics.recordReceived(env)
		c.handle(env)
	}
}

func (c *Client) handle(env *Envelope) {
	switch {
	case env.Type == MessageTypeConnectionRequest:
		c.hub.join(c, env.Content)

	case env.IsRelayed():
		err := c.hub.relay.Forward(c.password, c, env)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoPartner):
			c.log.Debug().Str("type", env.Type).Str("password", c.password).Msg("no partner, dropped")
		default:
			c.log.Warn().Err(err).Str("type", env.Type).Msg("relay failed")
		}

	default:
		c.hub.metrics.recordDropped(DropReasonUnknownType)
		c.log.Info().Err(ErrUnknownMessageType).Str("type", env.Type).Msg("ignoring envelope")
	}
}

// WritePump pumps envelopes from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	var tick <-chan time.Time
	if c.hub.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.hub.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Closing the connection unblocks ReadPump, which then unregisters.
	defer c.conn.Close()

	for {
		select {
		case env := <-c.send:
			if err := c.write(env); err != nil {
				c.log.Warn().Err(err).Msg("write failed")
				c.Close()
				return
			}

		case <-tick:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.flush()
			// Best effort: the peer may already be gone.
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// flush writes whatever is still queued.
func (c *Client) flush() {
	for {
		select {
		case env := <-c.send:
			if err := c.write(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.log.Debug().Str("type", env.Type).Int("bytes", len(data)).Msg("sent")
	return nil
}

func isBlank(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
