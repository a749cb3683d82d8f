package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// AccessTokenPayload is what a token is minted from.
type AccessTokenPayload struct {
	UserID uint64
	Role   enums.UserRole
}

// AccessTokenClaims is the verified identity carried by a bearer token.
type AccessTokenClaims struct {
	UserID uint64         `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
