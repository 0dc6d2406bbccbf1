package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identjwt "github.com/arvensis/trivia-arena/internal/identity/jwt"
)

func signToken(t *testing.T, secret []byte, claims identjwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestJWTGateVerifyCredentialAccepts(t *testing.T) {
	secret := []byte("test-secret")
	gate := NewJWTGate(secret)
	userID := uuid.New()

	token := signToken(t, secret, identjwt.Claims{
		UserID: userID,
		Role:   "player",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, err := gate.VerifyCredential(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, "player", id.Role)
}

func TestJWTGateVerifyCredentialRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	gate := NewJWTGate(secret)

	token := signToken(t, secret, identjwt.Claims{
		UserID: uuid.New(),
		Role:   "player",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := gate.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestJWTGateVerifyCredentialRejectsWrongSecret(t *testing.T) {
	gate := NewJWTGate([]byte("real-secret"))
	token := signToken(t, []byte("wrong-secret"), identjwt.Claims{UserID: uuid.New()})

	_, err := gate.VerifyCredential(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
