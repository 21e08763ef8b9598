package kit

import "context"

// Endpoint is a transport-agnostic request handler: decode, execute,
// encode are the caller's concern, Endpoint just takes a request and
// returns a response or an error.
type Endpoint func(ctx context.Context, request any) (response any, err error)

// Middleware wraps an Endpoint with cross-cutting behavior (logging,
// auth, rate limiting) and returns the wrapped Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first one listed runs outermost:
// Chain(a, b, c)(endpoint) behaves as a(b(c(endpoint))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
