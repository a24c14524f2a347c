package peer

import (
	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// Handler routes incoming signaling envelopes to typed channels.
type Handler struct {
	client *Client

	Password  chan string
	Negotiate chan struct{}
	Offer     chan string
	Answer    chan string
	Candidate chan string
	PeerLeft  chan struct{}
	Error     chan string

	// Closed is closed when the connection to the server drops.
	Closed chan struct{}
}

// NewHandler creates a new envelope handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:    client,
		Password:  make(chan string, 1),
		Negotiate: make(chan struct{}, 1),
		Offer:     make(chan string, 1),
		Answer:    make(chan string, 1),
		Candidate: make(chan string, 64),
		PeerLeft:  make(chan struct{}, 1),
		Error:     make(chan string, 4),
		Closed:    make(chan struct{}),
	}
}

// Start begins listening to incoming envelopes and routing them. It returns
// when the client's incoming channel is closed.
func (h *Handler) Start() {
	defer close(h.Closed)

	for env := range h.client.Incoming() {
		switch env.Type {

		case signaling.MessageTypePassword:
			offer(h.Password, env.Content)

		case signaling.MessageTypeSendSDPOffer:
			// An empty offer is the server telling the first peer to start.
			if env.Content == "" {
				offer(h.Negotiate, struct{}{})
			} else {
				offer(h.Offer, env.Content)
			}

		case signaling.MessageTypeSendSDPAnswer, signaling.MessageTypeReceiveSDPAnswer:
			offer(h.Answer, env.Content)

		case signaling.MessageTypeICECandidate:
			offer(h.Candidate, env.Content)

		case signaling.MessageTypePeerLeft:
			offer(h.PeerLeft, struct{}{})

		case signaling.MessageTypeError:
			offer(h.Error, env.Content)

		default:
		}
	}
}

// offer delivers v unless the channel is full; a stalled consumer must not
// block the read loop.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
