package signaling

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Relay forwards envelopes between the two members of a pairing entry.
// Partners are looked up under the registry lock; the send itself happens
// after the lock is released so a stalled partner never holds up other
// connections.
type Relay struct {
	registry *Registry
	metrics  *Metrics
	log      zerolog.Logger
}

// NewRelay creates a relay over registry.
func NewRelay(registry *Registry, metrics *Metrics, logger zerolog.Logger) *Relay {
	return &Relay{
		registry: registry,
		metrics:  metrics,
		log:      logger,
	}
}

// Forward delivers a copy of env, with the same type and content, to the
// partner of from under password. Without a partner the envelope is dropped
// and ErrNoPartner is returned; nothing is buffered. If the partner cannot
// accept the envelope it is closed and ErrDeliveryFailed is returned.
func (r *Relay) Forward(password string, from *Client, env *Envelope) error {
	partner := r.registry.PartnerOf(password, from)
	if partner == nil {
		r.metrics.recordDropped(DropReasonNoPartner)
		return ErrNoPartner
	}

	if err := r.deliver(partner, NewEnvelope(env.Type, env.Content)); err != nil {
		return err
	}
	r.metrics.recordRelayed(env)
	return nil
}

// StartNegotiation tells the member that joined first to create an offer.
func (r *Relay) StartNegotiation(first *Client) error {
	return r.deliver(first, NewEnvelope(MessageTypeSendSDPOffer, ""))
}

// Notify sends a server-originated envelope to c. Failures tear c down like
// any other failed delivery.
func (r *Relay) Notify(c *Client, env *Envelope) error {
	return r.deliver(c, env)
}

func (r *Relay) deliver(to *Client, env *Envelope) error {
	if err := to.Deliver(env); err != nil {
		r.metrics.deliveryFailures.Inc()
		r.log.Warn().
			Err(err).
			Str("conn", to.ID.String()).
			Str("type", env.Type).
			Msg("delivery failed, closing partner")
		to.Close()
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}
