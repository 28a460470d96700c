package dtrpkt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{MessageType: DataFrame, SourceID: 1, TargetID: 2, Data: []byte("hi")}

	raw, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, p.MessageType, got.MessageType)
	assert.Equal(t, p.SourceID, got.SourceID)
	assert.Equal(t, p.TargetID, got.TargetID)
	assert.Equal(t, p.Data, got.Data)
}

// Property 6 of spec.md §8: encode(decode(b)) == b for every byte string b
// emitted by encode.
func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Packet{
			MessageType: MessageType(rapid.Byte().Draw(t, "type")),
			SourceID:    rapid.Byte().Draw(t, "source"),
			TargetID:    rapid.Byte().Draw(t, "target"),
			Data:        rapid.SliceOfN(rapid.Byte(), 0, MaxPayload).Draw(t, "data"),
		}

		raw, err := Encode(p)
		require.NoError(t, err)

		decoded, err := Decode(raw)
		require.NoError(t, err)

		reencoded, err := Encode(decoded)
		require.NoError(t, err)

		assert.Equal(t, raw, reencoded)
	})
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2})
	assert.Error(t, err)
}

func TestDecodeRejectsOversizedDeclaration(t *testing.T) {
	_, err := Decode([]byte{200, 1, 1, 2, 3})
	assert.Error(t, err)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := Encode(Packet{Data: make([]byte, MaxPayload+1)})
	assert.Error(t, err)
}

func TestTopologyRoundTrip(t *testing.T) {
	ids := []byte{5, 2, 9}

	payload, err := EncodeTopology(ids)
	require.NoError(t, err)
	assert.Equal(t, byte(3), payload[0])

	got, err := DecodeTopology(payload)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
}

func TestEncodeTopologyRejectsSentinelCollision(t *testing.T) {
	_, err := EncodeTopology(make([]byte, 255))
	assert.Error(t, err)
}
