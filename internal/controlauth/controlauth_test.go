package controlauth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, key string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestValidateTokenAcceptsMatchingHMACSecret(t *testing.T) {
	gate := NewGate("supersecret", "")
	token := signToken(t, "supersecret", jwt.SigningMethodHS256)

	assert.NoError(t, gate.ValidateToken(token))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	gate := NewGate("supersecret", "")
	token := signToken(t, "wrong-secret", jwt.SigningMethodHS256)

	assert.Error(t, gate.ValidateToken(token))
}

func TestRequiredReflectsSigningKeyPresence(t *testing.T) {
	assert.False(t, NewGate("", "").Required())
	assert.True(t, NewGate("key", "").Required())
}

func TestSplitCommandCodeExtractsSixDigitSuffix(t *testing.T) {
	bare, code := SplitCommandCode("STOP:123456")
	assert.Equal(t, "STOP", bare)
	assert.Equal(t, "123456", code)
}

func TestSplitCommandCodeLeavesPlainCommandAlone(t *testing.T) {
	bare, code := SplitCommandCode("STOP")
	assert.Equal(t, "STOP", bare)
	assert.Equal(t, "", code)
}

func TestSplitCommandCodeIgnoresNonNumericSuffix(t *testing.T) {
	bare, code := SplitCommandCode("DEBUG:deadbeef")
	assert.Equal(t, "DEBUG:deadbeef", bare)
	assert.Equal(t, "", code)
}
