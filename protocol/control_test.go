package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	b, err := EncodeEvent(EventPlayerDied, PlayerNotice{ID: 4, Name: "bob", EatenBy: "al"})
	require.NoError(t, err)
	assert.Equal(t, OpEvent, b[0])

	env, err := DecodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, EventPlayerDied, env.T)

	n, err := DecodePayload[PlayerNotice](env)
	require.NoError(t, err)
	assert.Equal(t, PlayerNotice{ID: 4, Name: "bob", EatenBy: "al"}, n)
}

func TestEventNilPayload(t *testing.T) {
	env, err := DecodeEvent(MustEvent(EventRIP, nil))
	require.NoError(t, err)
	assert.Equal(t, EventRIP, env.T)
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := DecodeEvent(nil)
	assert.ErrorIs(t, err, ErrShortFrame)
	_, err = DecodeEvent([]byte{OpPong})
	assert.ErrorIs(t, err, ErrUnknownOpcode)
	_, err = DecodeEvent([]byte{OpEvent, 0xc1})
	assert.Error(t, err)
}

func TestDecodePayloadWrongShape(t *testing.T) {
	env, err := DecodeEvent(MustEvent(EventChat, "just a string"))
	require.NoError(t, err)
	_, err = DecodePayload[Chat](env)
	assert.Error(t, err)
}
