// Package shield provides reusable HTTP middleware: security headers,
// request correlation IDs, body-size limits, rate limiting, and HEAD
// method handling. It consolidates the cross-cutting HTTP concerns shared
// by every route the API exposes.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.TraceID)
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(64 << 20))
//	r.Use(shield.HeadToGet)
//
// Or apply the default stack in one call:
//
//	stack := shield.DefaultStack(rl)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack, ordered
// correlation-id → security headers → body-limit → HEAD handling → rate
// limit. Auth and project-scope middleware are applied by the caller
// after this stack, per the chain ordering the API defines.
func DefaultStack(rl *RateLimiter) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		TraceID,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(64 << 20),
		HeadToGet,
	}
	if rl != nil {
		stack = append(stack, rl.Middleware)
	}
	return stack
}
