package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/CSCfi/metadata-submitter-go/safeguard"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken creates a signed session JWT from the given claims. The
// expiry duration is added to the current time to set the ExpiresAt field.
// Returns an error if secret is shorter than safeguard.MinSecretLen bytes.
func GenerateToken(secret []byte, claims *SessionClaims, expiry time.Duration) (string, error) {
	if err := safeguard.ValidateSecret(secret); err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates a session JWT string, returning the
// structured claims. Strictly pins the signing method to HS256 to prevent
// algorithm confusion attacks.
func ValidateToken(secret []byte, tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ParseDPoPProof parses a DPoP proof JWT without verifying its signature,
// returning its claims and the parsed token (whose header carries the
// proof's "jwk"). It does not check the signature against that key (DPoP
// proofs are self-signed; there is no shared secret).
func ParseDPoPProof(tokenStr string) (*DPoPClaims, *jwt.Token, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"ES256", "RS256"}))
	claims := &DPoPClaims{}
	token, _, err := parser.ParseUnverified(tokenStr, claims)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: parse dpop proof: %w", err)
	}
	return claims, token, nil
}
