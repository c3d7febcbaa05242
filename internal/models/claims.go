package models

import "github.com/golang-jwt/jwt/v5"

// ActorClaims is the identity the upstream access-control system issues.
// The engine trusts that authentication and role checks happened before
// the token was minted.
type ActorClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
