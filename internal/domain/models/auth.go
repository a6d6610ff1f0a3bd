package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the JWT claims structure issued by the identity provider.
type SessionClaims struct {
	jwt.RegisteredClaims        // standard claims (sub, iss, aud, exp, iat, ...)
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *SessionClaims) GetUserID() string {
	return c.Subject
}
