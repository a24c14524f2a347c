package peer

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Probe data channel message types.
const (
	FrameTypePing = "ping"
	FrameTypePong = "pong"
)

// Frame represents all probe data channel messages
type Frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// PingPayload is carried by both ping and pong; a pong echoes the ping.
type PingPayload struct {
	Seq    uint32 `msgpack:"seq"`
	SentAt int64  `msgpack:"sentAt"`
}

// DecodePayload decodes the frame payload into the provided struct
func (f Frame) DecodePayload(v any) error {
	return msgpack.Unmarshal(f.Payload, v)
}

// NewFrame creates a new Frame with the given type and payload
func NewFrame(t string, payload any) (Frame, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Type:    t,
		Payload: b,
	}, nil
}

// EncodeFrame builds and serializes a frame in one step.
func EncodeFrame(t string, payload any) ([]byte, error) {
	f, err := NewFrame(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(f)
}

// DecodeFrame parses a serialized frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}

// RoundTrip returns the time elapsed since the ping was sent.
func (p PingPayload) RoundTrip(now time.Time) time.Duration {
	return now.Sub(time.UnixMicro(p.SentAt))
}
