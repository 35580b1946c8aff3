package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateToken("sess-1", "0xabc")
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "0xabc", claims.Address)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestVerifyRejects(t *testing.T) {
	m := NewManager("secret", time.Hour)

	other, err := NewManager("other", time.Hour).GenerateToken("sess-1", "0xabc")
	require.NoError(t, err)
	_, err = m.VerifyToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSession, err := m.GenerateToken("", "0xabc")
	require.NoError(t, err)
	_, err = m.VerifyToken(noSession)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	m := NewManager("secret", time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		SessionID:        "sess-1",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsNoneAlg(t *testing.T) {
	m := NewManager("secret", 0)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: "s"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmptySecretUsesRandomKey(t *testing.T) {
	m := NewManager("", time.Hour)
	token, err := m.GenerateToken("sess-1", "0xabc")
	require.NoError(t, err)
	_, err = m.VerifyToken(token)
	require.NoError(t, err)

	forged, err := NewManager("", time.Hour).GenerateToken("sess-1", "0xabc")
	require.NoError(t, err)
	_, err = m.VerifyToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Len(t, m.secretKey, 32)
}
