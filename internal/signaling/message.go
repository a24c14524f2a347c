package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message types understood by the server.
const (
	// Server -> client
	MessageTypePassword = "Password"
	MessageTypeError    = "Error"
	MessageTypePeerLeft = "PeerLeft"

	// Client -> server
	MessageTypeConnectionRequest = "ConnectionRequest"

	// Relayed in both directions
	MessageTypeSendSDPOffer     = "SendSDPOffer"
	MessageTypeSendSDPAnswer    = "SendSDPAnswer"
	MessageTypeReceiveSDPAnswer = "ReceiveSDPAnswer"
	MessageTypeICECandidate     = "ICECandidate"

	// Older clients spell it this way; relayed unchanged.
	messageTypeRecieveSDPAnswer = "RecieveSDPAnswer"
)

// Envelope is the unit exchanged over a signaling connection. Content is
// opaque to the server; it is usually a JSON-serialized SDP or ICE candidate.
type Envelope struct {
	Type    string `json:"MessageType"`
	Content string `json:"MessageContent"`
}

// NewEnvelope builds an envelope of the given type.
func NewEnvelope(msgType, content string) *Envelope {
	return &Envelope{Type: msgType, Content: content}
}

// IsRelayed reports whether envelopes of this type are forwarded to the
// partner connection verbatim.
func (e *Envelope) IsRelayed() bool {
	switch e.Type {
	case MessageTypeSendSDPOffer,
		MessageTypeSendSDPAnswer,
		MessageTypeReceiveSDPAnswer,
		messageTypeRecieveSDPAnswer,
		MessageTypeICECandidate:
		return true
	}
	return false
}

// Encode serializes the envelope as a JSON text frame.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a text frame. Anything other than a JSON object
// carrying a MessageType yields ErrMalformedEnvelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedEnvelope
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing MessageType", ErrMalformedEnvelope)
	}
	return &env, nil
}
