package signaling

import "errors"

var (
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrRegistryFull is returned when a third connection tries to join a
	// password that already has two members.
	ErrRegistryFull = errors.New("password already has two peers")

	// ErrPasswordsExhausted is returned when every password in the keyspace
	// is active or reserved.
	ErrPasswordsExhausted = errors.New("password keyspace exhausted")

	ErrDeliveryFailed = errors.New("delivery to partner failed")
	ErrClientClosed   = errors.New("client closed")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrNoPartner      = errors.New("no partner to relay to")
	ErrAlreadyJoined  = errors.New("connection already joined this password")
)
