package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MagicLink mints and verifies the tokens mailed to email recipients of a
// share. The token is an HMAC-signed JWT scoped to one (page, email) pair;
// it is additionally stored server-side so a reshare revokes earlier links.
// Redeeming one grants view only and never touches the participation tables.
type MagicLink struct {
	secret []byte
	ttl    time.Duration
}

var ErrBadMagicLink = errors.New("invalid magic link token")

// NewMagicLink creates a magic link signer. ttl bounds how long a mailed
// link stays redeemable.
func NewMagicLink(secret string, ttl time.Duration) (*MagicLink, error) {
	if secret == "" {
		return nil, errors.New("magic link secret cannot be empty")
	}
	return &MagicLink{secret: []byte(secret), ttl: ttl}, nil
}

// Mint signs a token for the (page, email) pair. Returns the token string
// and its expiry.
func (m *MagicLink) Mint(pageID uuid.UUID, email string, now time.Time) (string, time.Time, error) {
	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Audience:  jwt.ClaimStrings{pageID.String()},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign magic link: %w", err)
	}

	return token, expires, nil
}

// Verify checks the token's signature and that it was minted for exactly
// this page and email. The caller still has to confirm the token is the
// one currently stored for the pair.
func (m *MagicLink) Verify(pageID uuid.UUID, email, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrBadMagicLink
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject != email {
		return ErrBadMagicLink
	}
	audience, err := token.Claims.GetAudience()
	if err != nil || len(audience) != 1 || audience[0] != pageID.String() {
		return ErrBadMagicLink
	}

	return nil
}
