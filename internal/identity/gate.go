// Package identity implements the Identity Gate: it verifies a bearer
// credential on each socket handshake and attaches a user identity to the
// connection. Credential issuance belongs to an external collaborator; this
// package only verifies.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/arvensis/trivia-arena/internal/identity/jwt"
)

// ErrUnauthorized is returned for any credential the gate cannot accept.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the user identity attached to a connection after a successful
// handshake.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Gate verifies an opaque bearer credential.
type Gate interface {
	VerifyCredential(ctx context.Context, opaqueToken string) (Identity, error)
}

// JWTGate verifies HMAC-signed JWTs minted by the account-lifecycle collaborator.
type JWTGate struct {
	verifier *jwt.Verifier
}

// NewJWTGate builds a Gate bound to the shared signing secret.
func NewJWTGate(secret []byte) *JWTGate {
	return &JWTGate{verifier: jwt.NewVerifier(secret)}
}

// VerifyCredential implements Gate.
func (g *JWTGate) VerifyCredential(ctx context.Context, opaqueToken string) (Identity, error) {
	claims, err := g.verifier.Verify(opaqueToken)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	if claims.UserID == uuid.Nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
