package peer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

func startHandler(t *testing.T) (chan *signaling.Envelope, *Handler) {
	t.Helper()
	in := make(chan *signaling.Envelope)
	h := NewHandler(&Client{incoming: in})
	go h.Start()
	return in, h
}

func recv[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("nothing routed")
		var zero T
		return zero
	}
}

func TestHandlerRoutesEnvelopes(t *testing.T) {
	in, h := startHandler(t)

	in <- signaling.NewEnvelope(signaling.MessageTypePassword, "4242")
	assert.Equal(t, "4242", recv(t, h.Password))

	in <- signaling.NewEnvelope(signaling.MessageTypeSendSDPOffer, "")
	recv(t, h.Negotiate)

	in <- signaling.NewEnvelope(signaling.MessageTypeSendSDPOffer, "offer")
	assert.Equal(t, "offer", recv(t, h.Offer))

	in <- signaling.NewEnvelope(signaling.MessageTypeSendSDPAnswer, "answer")
	assert.Equal(t, "answer", recv(t, h.Answer))

	in <- signaling.NewEnvelope(signaling.MessageTypeReceiveSDPAnswer, "answer-2")
	assert.Equal(t, "answer-2", recv(t, h.Answer))

	in <- signaling.NewEnvelope(signaling.MessageTypeICECandidate, "cand")
	assert.Equal(t, "cand", recv(t, h.Candidate))

	in <- signaling.NewEnvelope(signaling.MessageTypePeerLeft, "")
	recv(t, h.PeerLeft)

	in <- signaling.NewEnvelope(signaling.MessageTypeError, "full")
	assert.Equal(t, "full", recv(t, h.Error))

	in <- signaling.NewEnvelope("Bogus", "x")
	close(in)
	recv(t, h.Closed)
}

func TestHandlerDoesNotBlockOnFullChannel(t *testing.T) {
	in, h := startHandler(t)

	// Password has room for one value; the second is dropped.
	in <- signaling.NewEnvelope(signaling.MessageTypePassword, "1111")
	in <- signaling.NewEnvelope(signaling.MessageTypePassword, "2222")
	close(in)

	recv(t, h.Closed)
	assert.Equal(t, "1111", <-h.Password)
}

func TestSignalingError(t *testing.T) {
	err := WrapError("probe", ErrServerError, "password already has two peers")
	assert.True(t, errors.Is(err, ErrServerError))
	assert.Equal(t, "probe: signaling server error (password already has two peers)", err.Error())

	err = NewError("probe", ErrPeerLeft)
	assert.ErrorIs(t, err, ErrPeerLeft)
	assert.Equal(t, "probe: peer left the session", err.Error())

	var se *SignalingError
	require.ErrorAs(t, error(err), &se)
	assert.Equal(t, "probe", se.Op)
}
