// Package auth provides the OEM session gate for the DefLink HTTP API.
//
// # Passwords
//
// There is one shared OEM password. Its hash lives in the settings record and
// is reached through the PasswordStore interface. New hashes are bcrypt.
// Unsalted SHA-256 hex digests from older deployments still verify and are
// replaced with bcrypt on the next successful login.
//
// # Sessions
//
// A successful login creates a Session record in the key-value store and
// returns an HS256 JWT whose jti claim is the session id:
//
//	{"jti": "<session id>", "sub": "oem", "iat": ..., "exp": ...}
//
// The token travels in the deflink_session cookie. A request is authorized
// only if the signature and expiry check out AND the session record still
// exists and has not expired. Logging out deletes the record, so a copied
// cookie stops working immediately. Changing the password deletes every
// other session.
//
// # HTTP Integration
//
// RequireSession wraps handlers and stores the validated Session in the
// request context:
//
//	mux.Handle("GET /api/oem/requests", auth.RequireSession(a, deny)(handler))
//
// Handlers retrieve it with SessionFromContext.
package auth
