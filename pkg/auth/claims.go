package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role gates the admin surface. There is a single role today; the claim
// stays explicit so operator tooling can mint narrower tokens later.
type Role string

const RoleAdmin Role = "admin"

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	return r == RoleAdmin
}

// AccessTokenClaims are the JWT claims carried by admin tokens.
type AccessTokenClaims struct {
	Subject string `json:"sub_id"`
	Role    Role   `json:"role"`
	jwt.RegisteredClaims
}

// AccessTokenPayload is the input to token minting.
type AccessTokenPayload struct {
	Subject string
	Role    Role
	JTI     string
}
