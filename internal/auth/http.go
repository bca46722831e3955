// ABOUTME: HTTP cookie handling and middleware for the OEM session gate
// ABOUTME: Reads the session cookie, validates it and adds the session to context

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "deflink_session"

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	// Secure marks the cookie HTTPS-only. Disable only for local HTTP
	// development.
	Secure bool
	// MaxAge is the cookie lifetime.
	MaxAge time.Duration
}

// SetSessionCookie writes the session cookie for token.
func SetSessionCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session token from the cookie, if any.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RequireSession creates an HTTP middleware that rejects requests without a
// live session. deny writes the rejection for auth failures; fail writes it
// for storage errors.
func RequireSession(a *Authenticator, deny, fail http.HandlerFunc) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := a.Authenticate(r.Context(), TokenFromRequest(r))
			if errors.Is(err, ErrInvalidSession) {
				logger.Warn("rejected request without valid session", "path", r.URL.Path)
				deny(w, r)
				return
			}
			if err != nil {
				logger.Error("validating session", "path", r.URL.Path, "error", err)
				fail(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
