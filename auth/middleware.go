package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/CSCfi/metadata-submitter-go/kit"
)

type claimsKey struct{}

// Middleware returns an http.Handler middleware that extracts a session JWT
// from the "session" cookie (preferred) or the Authorization Bearer header.
// If valid, the parsed SessionClaims are injected into the request context
// along with kit.UserIDKey for interoperability with the kit context layer.
// Invalid or missing tokens are silently ignored here — use RequireAuth to
// enforce that a request carries a valid principal.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
				tokenStr = c.Value
			}

			if tokenStr == "" {
				if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
					tokenStr = h[7:]
				}
			}

			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(secret, tokenStr)
			if err != nil {
				http.SetCookie(w, &http.Cookie{Name: sessionCookieName, MaxAge: -1, Path: "/"})
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			ctx = kit.WithUserID(ctx, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the SessionClaims from the context, or nil if absent.
func GetClaims(ctx context.Context) *SessionClaims {
	c, _ := ctx.Value(claimsKey{}).(*SessionClaims)
	return c
}

// RequireAuth rejects requests with no valid session or API-key principal in
// context with a 401 problem+json body. This is an API, not a browser app,
// so an unauthenticated request never gets a redirect.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil && kit.GetUserID(r.Context()) == "" {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "about:blank",
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"errors": []map[string]string{{"detail": "missing or invalid credentials"}},
	})
}
