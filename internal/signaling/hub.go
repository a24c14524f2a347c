package signaling

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Options configures a Hub. Zero values fall back to the defaults.
type Options struct {
	PasswordDigits int
	SendQueue      int
	MaxMessageSize int64

	// PingInterval and PongWait drive keepalive pings. Zero disables them.
	PingInterval time.Duration
	PongWait     time.Duration

	Logger zerolog.Logger
}

// DefaultOptions returns the options used by the server when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		PasswordDigits: DefaultPasswordDigits,
		SendQueue:      DefaultSendQueue,
		MaxMessageSize: DefaultMaxMessageSize,
		PingInterval:   DefaultPingInterval,
		PongWait:       DefaultPongWait,
		Logger:         zerolog.Nop(),
	}
}

// Hub is the central brain of the signaling server. It owns the pairing
// registry and the relay, and tracks every live client so the server can
// close them on shutdown.
type Hub struct {
	opts     Options
	registry *Registry
	relay    *Relay
	metrics  *Metrics
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates a Hub.
func NewHub(opts Options) (*Hub, error) {
	if opts.PasswordDigits == 0 {
		opts.PasswordDigits = DefaultPasswordDigits
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = DefaultSendQueue
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	if opts.PingInterval > 0 && opts.PongWait > 0 && opts.PingInterval >= opts.PongWait {
		return nil, fmt.Errorf("ping interval %s must be shorter than pong wait %s", opts.PingInterval, opts.PongWait)
	}

	gen, err := NewPasswordGenerator(opts.PasswordDigits)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		opts:     opts,
		registry: NewRegistry(gen),
		log:      opts.Logger,
		clients:  make(map[*Client]struct{}),
	}
	h.metrics = NewMetrics(func() float64 {
		return float64(h.registry.Stats().Sessions)
	})
	h.relay = NewRelay(h.registry, h.metrics, h.log)
	return h, nil
}

// Registry returns the hub's pairing registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Metrics returns the hub's collectors.
func (h *Hub) Metrics() *Metrics {
	return h.metrics
}

// Register wraps an upgraded connection in a Client, issues its password and
// queues the Password envelope. The caller starts WritePump and ReadPump.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	c := newClient(h, conn, h.opts.SendQueue)

	password, err := h.registry.Issue(c)
	if err != nil {
		return nil, err
	}
	c.password = password

	if err := c.Deliver(NewEnvelope(MessageTypePassword, password)); err != nil {
		h.registry.Release(c)
		return nil, err
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.connections.Inc()

	c.log.Info().Str("password", password).Msg("client registered")
	return c, nil
}

// Stats returns a snapshot of the registry plus the live connection count.
func (h *Hub) Stats() Stats {
	s := h.registry.Stats()
	h.mu.Lock()
	s.Connections = len(h.clients)
	h.mu.Unlock()
	return s
}

// Shutdown closes every live client. Registry entries are released as their
// read loops exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.log.Info().Int("clients", len(clients)).Msg("hub shut down")
}

// join handles a ConnectionRequest. A non-empty requested password replaces
// the client's session key before joining.
func (h *Hub) join(c *Client, requested string) {
	password := c.password
	if requested != "" {
		password = requested
	}

	if c.joined {
		if password == c.password {
			c.log.Debug().Str("password", password).Msg("already joined")
			return
		}
		h.leave(c)
	}
	c.password = password

	outcome, first, err := h.registry.Join(password, c)
	if err != nil {
		if errors.Is(err, ErrRegistryFull) {
			h.metrics.joinRejected.Inc()
		}
		c.log.Info().Err(err).Str("password", password).Msg("join rejected")
		h.relay.Notify(c, NewEnvelope(MessageTypeError, err.Error()))
		return
	}
	c.joined = true

	c.log.Info().Str("password", password).Stringer("outcome", outcome).Msg("joined")

	if outcome == PairPaired {
		h.metrics.pairings.Inc()
		if err := h.relay.StartNegotiation(first); err != nil {
			c.log.Warn().Err(err).Str("password", password).Msg("could not start negotiation")
		}
	}
}

// leave removes c from its entry and tells the remaining member.
func (h *Hub) leave(c *Client) {
	partner, removed := h.registry.Leave(c.password, c)
	c.joined = false
	if !removed {
		return
	}

	c.log.Info().Str("password", c.password).Msg("left")
	if !h.registry.Active(c.password) {
		c.log.Info().Str("password", c.password).Msg("password available for reuse")
	}

	if partner != nil {
		h.relay.Notify(partner, NewEnvelope(MessageTypePeerLeft, ""))
	}
}

// unregister is the single cleanup path of a client, run when its ReadPump
// exits.
func (h *Hub) unregister(c *Client) {
	h.leave(c)
	h.registry.Release(c)

	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		h.metrics.connections.Dec()
	}

	c.Close()
	c.log.Info().Msg("client unregistered")
}
