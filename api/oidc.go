package api

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/CSCfi/metadata-submitter-go/auth"
	"github.com/CSCfi/metadata-submitter-go/idgen"
)

// pendingAuth is one in-flight authorization-code request's PKCE verifier,
// kept server-side and looked up by its state value at callback time.
type pendingAuth struct {
	verifier string
	expires  time.Time
}

// stateStore is a short-lived, single-use map from OIDC "state" to its
// PKCE verifier, guarding against CSRF on the callback per spec.md §4.F.
// Entries are deleted on first use and lazily swept of anything past its
// TTL.
type stateStore struct {
	mu      sync.Mutex
	pending map[string]pendingAuth
	ttl     time.Duration
}

func newStateStore(ttl time.Duration) *stateStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &stateStore{pending: make(map[string]pendingAuth), ttl: ttl}
}

func (s *stateStore) put(state, verifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.pending[state] = pendingAuth{verifier: verifier, expires: time.Now().Add(s.ttl)}
}

// take returns the verifier for state and deletes it; a second call with
// the same state always fails, which is the point.
func (s *stateStore) take(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[state]
	delete(s.pending, state)
	if !ok || time.Now().After(p.expires) {
		return "", false
	}
	return p.verifier, true
}

func (s *stateStore) sweep() {
	now := time.Now()
	for k, v := range s.pending {
		if now.After(v.expires) {
			delete(s.pending, k)
		}
	}
}

// oidcHandlers serves /aai and /callback. Its stateStore lives for the
// handler's lifetime (one per router build), matching the single-process,
// in-memory nature of spec.md §4.F's DPoP replay cache.
type oidcHandlers struct {
	deps  Deps
	once  sync.Once
	store *stateStore
}

func (h *oidcHandlers) states() *stateStore {
	h.once.Do(func() { h.store = newStateStore(0) })
	return h.store
}

// login redirects to the provider's authorization endpoint with a fresh
// PKCE challenge, per spec.md §4.F: "/aai initiates authorization-code
// with PKCE".
func (h *oidcHandlers) login(w http.ResponseWriter, r *http.Request) {
	o := h.deps.OIDC
	oauthCfg := auth.NewOIDCProvider(o.Config)

	verifier, challenge, err := auth.NewPKCEVerifier()
	if err != nil {
		writeError(w, r, err)
		return
	}

	state := idgen.NanoID(24)()
	h.states().put(state, verifier)

	http.Redirect(w, r, auth.AuthCodeURL(oauthCfg, state, challenge), http.StatusFound)
}

// callback completes the authorization-code+PKCE exchange, derives a
// stable local user id from the provider subject, mints the session JWT,
// and sets it as an http-only cookie, per spec.md §4.F.
func (h *oidcHandlers) callback(w http.ResponseWriter, r *http.Request) {
	o := h.deps.OIDC
	q := r.URL.Query()
	state, code := q.Get("state"), q.Get("code")

	verifier, ok := h.states().take(state)
	if state == "" || code == "" || !ok {
		writeProblem(w, r, http.StatusUnauthorized, "Invalid or expired login attempt")
		return
	}

	if o.RequireDPoP {
		if err := verifyDPoP(r, o.ReplayCache); err != nil {
			writeProblem(w, r, http.StatusUnauthorized, "DPoP proof rejected")
			return
		}
	}

	oauthCfg := auth.NewOIDCProvider(o.Config)
	user, _, err := auth.ExchangeUser(r.Context(), oauthCfg, o.UserInfoURL, code, verifier)
	if err != nil {
		writeProblem(w, r, http.StatusUnauthorized, "OIDC exchange failed")
		return
	}

	claims := &auth.SessionClaims{
		UserID:       user.Subject,
		Username:     user.Subject,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		AuthProvider: "oidc",
	}
	ttl := time.Duration(o.SessionTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	token, err := auth.GenerateToken(h.deps.JWTSecret, claims, ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.SetTokenCookie(w, token, o.CookieDomain, o.SecureCookie)
	http.Redirect(w, r, "/", http.StatusFound)
}

// errDPoPMismatch is returned when a DPoP proof's htm/htu claims do not
// match the request it was presented with.
var errDPoPMismatch = errors.New("api: dpop proof does not match request")

// verifyDPoP validates the proof-of-possession JWT in the "DPoP" header
// against the request's method and URI path and rejects replayed jtis, per
// spec.md §4.F's RFC 9449 requirement. The proof's signature is not
// verified: auth.ParseDPoPProof parses it unverified and nothing here
// checks it against the proof's embedded key.
func verifyDPoP(r *http.Request, cache *auth.ReplayCache) error {
	proof := r.Header.Get("DPoP")
	if proof == "" {
		return http.ErrNoCookie
	}
	claims, _, err := auth.ParseDPoPProof(proof)
	if err != nil {
		return err
	}
	if claims.HTTPMethod != r.Method {
		return errDPoPMismatch
	}
	if u, err := url.Parse(claims.HTTPURI); err != nil || u.Path != r.URL.Path {
		return errDPoPMismatch
	}
	exp := time.Now().Add(time.Minute)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return cache.Check(claims.ID, exp)
}

// logoutHandler clears the session cookie. A nil OIDC config still clears
// the cookie under its default domain so logging out never 500s.
func logoutHandler(o *OIDCDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain := ""
		if o != nil {
			domain = o.CookieDomain
		}
		auth.ClearTokenCookie(w, domain)
		writeNoContent(w)
	}
}
