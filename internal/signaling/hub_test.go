package signaling

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	opts := DefaultOptions()
	opts.SendQueue = 8
	h, err := NewHub(opts)
	require.NoError(t, err)
	return h
}

// register attaches a connectionless client and consumes its Password
// envelope.
func register(t *testing.T, h *Hub) (*Client, string) {
	t.Helper()
	c, err := h.Register(nil)
	require.NoError(t, err)

	env := next(t, c)
	require.Equal(t, MessageTypePassword, env.Type)
	require.Len(t, env.Content, 4)
	return c, env.Content
}

func next(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case env := <-c.send:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return nil
	}
}

func assertNothingQueued(t *testing.T, c *Client) {
	t.Helper()
	select {
	case env := <-c.send:
		t.Fatalf("unexpected envelope %+v", env)
	default:
	}
}

func TestHubRegisterIssuesDistinctPasswords(t *testing.T) {
	h := newTestHub(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, p := register(t, h)
		assert.False(t, seen[p])
		seen[p] = true
	}
	assert.Equal(t, 50, h.Stats().Connections)
	assert.Equal(t, 50, h.Stats().Reserved)
}

func TestHubConnectionRequestWithoutContentJoinsIssuedPassword(t *testing.T) {
	h := newTestHub(t)
	a, p := register(t, h)

	a.handle(NewEnvelope(MessageTypeConnectionRequest, ""))

	assert.Equal(t, p, a.Password())
	assert.Equal(t, 1, h.Registry().Members(p))
	assertNothingQueued(t, a)
}

func TestHubSecondJoinerKicksFirst(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)

	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))

	env := next(t, a)
	assert.Equal(t, &Envelope{Type: MessageTypeSendSDPOffer, Content: ""}, env)
	assertNothingQueued(t, b)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.pairings))
}

func TestHubRelaysBetweenPartners(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	next(t, a) // negotiation kick

	b.handle(NewEnvelope(MessageTypeSendSDPAnswer, "X"))
	assert.Equal(t, &Envelope{Type: MessageTypeSendSDPAnswer, Content: "X"}, next(t, a))
	assertNothingQueued(t, a)
	assertNothingQueued(t, b)

	a.handle(NewEnvelope(MessageTypeICECandidate, `{"candidate":"c"}`))
	assert.Equal(t, &Envelope{Type: MessageTypeICECandidate, Content: `{"candidate":"c"}`}, next(t, b))

	a.handle(NewEnvelope("RecieveSDPAnswer", "legacy"))
	assert.Equal(t, &Envelope{Type: "RecieveSDPAnswer", Content: "legacy"}, next(t, b))
}

func TestHubDropsWithoutPartner(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))

	a.handle(NewEnvelope(MessageTypeSendSDPOffer, "offer"))
	assertNothingQueued(t, a)

	// Nothing is buffered for a partner that joins later.
	b, _ := register(t, h)
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	assert.Equal(t, MessageTypeSendSDPOffer, next(t, a).Type)
	assertNothingQueued(t, b)
}

func TestHubIgnoresUnknownTypes(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	next(t, a)

	b.handle(NewEnvelope("Bogus", "x"))
	b.handle(NewEnvelope(MessageTypePassword, "1234"))
	assertNothingQueued(t, a)
	assertNothingQueued(t, b)
}

func TestHubThirdJoinerGetsError(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)
	c, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	next(t, a)

	c.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))

	env := next(t, c)
	assert.Equal(t, MessageTypeError, env.Type)
	assert.Contains(t, env.Content, "two peers")
	assert.Equal(t, 2, h.Registry().Members("4242"))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.joinRejected))

	// The rejected client cannot inject into the pair.
	c.handle(NewEnvelope(MessageTypeSendSDPOffer, "evil"))
	assertNothingQueued(t, a)
	assertNothingQueued(t, b)

	// Its teardown leaves the pair alone.
	h.unregister(c)
	assert.Equal(t, 2, h.Registry().Members("4242"))
}

func TestHubRepeatedRequestForSamePasswordIsNoop(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	next(t, a)

	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	assert.Equal(t, 2, h.Registry().Members("4242"))
	assertNothingQueued(t, a)
	assertNothingQueued(t, b)
}

func TestHubSwitchingPasswordLeavesPreviousEntry(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	next(t, a)

	b.handle(NewEnvelope(MessageTypeConnectionRequest, "5555"))

	assert.Equal(t, 1, h.Registry().Members("4242"))
	assert.Equal(t, 1, h.Registry().Members("5555"))
	assert.Equal(t, "5555", b.Password())
	assert.Equal(t, MessageTypePeerLeft, next(t, a).Type)
}

func TestHubUnregisterReleasesEntryOnlyWhenEmpty(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	next(t, a)

	h.unregister(a)
	assert.True(t, h.Registry().Active("4242"))
	assert.Equal(t, MessageTypePeerLeft, next(t, b).Type)

	// b keeps talking but nothing reaches a anymore.
	b.handle(NewEnvelope(MessageTypeSendSDPAnswer, "late"))
	assertNothingQueued(t, a)

	h.unregister(b)
	assert.False(t, h.Registry().Active("4242"))
	assert.Equal(t, Stats{}, h.Stats())

	// A second teardown is harmless.
	h.unregister(b)
	assert.Equal(t, Stats{}, h.Stats())
	assert.Equal(t, float64(0), testutil.ToFloat64(h.metrics.connections))
}

func TestHubDeliveryFailureClosesPartner(t *testing.T) {
	opts := DefaultOptions()
	opts.SendQueue = 1
	h, err := NewHub(opts)
	require.NoError(t, err)

	a, _ := register(t, h)
	b, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	b.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))

	// a's single slot now holds the negotiation kick and nobody drains it.
	err = h.relay.Forward("4242", b, NewEnvelope(MessageTypeSendSDPAnswer, "X"))
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorIs(t, err, ErrSendQueueFull)

	select {
	case <-a.Done():
	default:
		t.Fatal("partner was not closed")
	}
	select {
	case <-b.Done():
		t.Fatal("sender must stay open")
	default:
	}
	assert.ErrorIs(t, a.Deliver(NewEnvelope(MessageTypeICECandidate, "")), ErrClientClosed)
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	b, _ := register(t, h)

	h.Shutdown()
	for _, c := range []*Client{a, b} {
		select {
		case <-c.Done():
		default:
			t.Fatal("client not closed")
		}
	}
}

func TestHubRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.PingInterval = time.Minute
	opts.PongWait = time.Second
	_, err := NewHub(opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.PasswordDigits = 12
	_, err = NewHub(opts)
	assert.Error(t, err)
}

func TestHubMetricsExposition(t *testing.T) {
	h := newTestHub(t)
	a, _ := register(t, h)
	a.handle(NewEnvelope(MessageTypeConnectionRequest, "4242"))
	a.handle(NewEnvelope("Bogus", ""))

	count, err := testutil.GatherAndCount(h.Metrics().Gatherer(), "rendezvous_sessions_active")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP rendezvous_sessions_active Passwords with at least one joined connection.
# TYPE rendezvous_sessions_active gauge
rendezvous_sessions_active 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.Metrics().Gatherer(), strings.NewReader(expected), "rendezvous_sessions_active"))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.dropped.WithLabelValues(DropReasonUnknownType)))
}
