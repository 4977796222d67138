package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a signed session token. The subject is the
// user id; the Auth Gate trusts it directly without a database lookup.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
