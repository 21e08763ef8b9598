package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the JWT claims structure for the short-lived session
// cookie minted after a successful OIDC callback. It embeds
// jwt.RegisteredClaims for sub/iat/exp/iss and carries the project-facing
// identity fields the handlers and middleware need on every request.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	AuthProvider string `json:"auth_provider,omitempty"`
}

// DPoPClaims is the claims structure of an RFC 9449 DPoP proof JWT
// presented in the "DPoP" request header alongside a bearer token.
type DPoPClaims struct {
	jwt.RegisteredClaims
	HTTPMethod string `json:"htm"`
	HTTPURI    string `json:"htu"`
}
