package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the custom JWT claims carried by a panel session token.
type TokenClaims struct {
	AccountID string `json:"account_id"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}
