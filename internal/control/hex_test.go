package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHexAcceptsSpaceSeparatedBytes(t *testing.T) {
	decoded, err := decodeHex("45 DE AD")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0xDE, 0xAD}, decoded)
}

func TestDecodeHexAcceptsUnspacedBytes(t *testing.T) {
	decoded, err := decodeHex("45dead")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0xDE, 0xAD}, decoded)
}

func TestDecodeHexRejectsOddLength(t *testing.T) {
	_, err := decodeHex("45d")
	assert.Error(t, err)
}

func TestEncodeDecodeHexRoundTrips(t *testing.T) {
	original := []byte{0x00, 0x7E, 0x81, 0xFF}
	decoded, err := decodeHex(encodeHex(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}
