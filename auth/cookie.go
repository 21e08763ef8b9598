package auth

import "net/http"

// sessionCookieName is the single name used both when setting and clearing
// the session cookie; middleware.go reads the same literal.
const sessionCookieName = "session"

// SetTokenCookie writes the session JWT as an HttpOnly cookie, capped at
// the 1h lifetime spec.md §4.F gives the session cookie. When domain is
// non-empty, the cookie is set with that Domain attribute, enabling
// cross-subdomain SSO.
func SetTokenCookie(w http.ResponseWriter, token, domain string, secure bool) {
	c := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   3600, // 1h
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	}
	if domain != "" {
		c.Domain = domain
	}
	http.SetCookie(w, c)
}

// ClearTokenCookie removes the session cookie, matching the same Domain
// attribute so that cross-subdomain cookies are properly cleared.
func ClearTokenCookie(w http.ResponseWriter, domain string) {
	c := &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
	if domain != "" {
		c.Domain = domain
	}
	http.SetCookie(w, c)
}
