package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"MessageType":"SendSDPAnswer","MessageContent":"X"}`))
	require.NoError(t, err)
	assert.Equal(t, &Envelope{Type: MessageTypeSendSDPAnswer, Content: "X"}, env)

	env, err = DecodeEnvelope([]byte(`  {"MessageType":"ConnectionRequest"}  `))
	require.NoError(t, err)
	assert.Equal(t, MessageTypeConnectionRequest, env.Type)
	assert.Empty(t, env.Content)
}

func TestDecodeEnvelopeRejectsMalformedFrames(t *testing.T) {
	for name, frame := range map[string]string{
		"not json":       "not json",
		"empty":          "",
		"whitespace":     " \n\t ",
		"array":          `["SendSDPOffer"]`,
		"string":         `"SendSDPOffer"`,
		"missing type":   `{"MessageContent":"x"}`,
		"content object": `{"MessageType":"SendSDPOffer","MessageContent":{"sdp":"v=0"}}`,
		"truncated":      `{"MessageType":"SendSDPOffer"`,
	} {
		t.Run(name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(frame))
			assert.Nil(t, env)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestEnvelopeEncodeUsesWireFieldNames(t *testing.T) {
	data, err := NewEnvelope(MessageTypePassword, "7312").Encode()
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]string{"MessageType": "Password", "MessageContent": "7312"}, raw)

	data, err = NewEnvelope(MessageTypeSendSDPOffer, "").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"MessageType":"SendSDPOffer","MessageContent":""}`, string(data))
}

func TestEnvelopeIsRelayed(t *testing.T) {
	relayed := []string{
		MessageTypeSendSDPOffer,
		MessageTypeSendSDPAnswer,
		MessageTypeReceiveSDPAnswer,
		"RecieveSDPAnswer",
		MessageTypeICECandidate,
	}
	for _, typ := range relayed {
		assert.True(t, NewEnvelope(typ, "").IsRelayed(), typ)
	}

	for _, typ := range []string{MessageTypeConnectionRequest, MessageTypePassword, MessageTypeError, "Bogus"} {
		assert.False(t, NewEnvelope(typ, "").IsRelayed(), typ)
	}
}
