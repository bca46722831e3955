// ABOUTME: Server-side session records backing the signed session cookie
// ABOUTME: Issues, validates and revokes sessions and sweeps expired ones

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deflink/deflink/internal/entity"
	"github.com/deflink/deflink/internal/store"
)

// SessionSubject is the subject of every OEM session token.
const SessionSubject = "oem"

// DefaultSessionTTL is how long a session lasts without configuration.
const DefaultSessionTTL = 24 * time.Hour

// ErrInvalidSession is returned for any token that does not map to a live
// session. Callers should not tell the client which check failed.
var ErrInvalidSession = errors.New("invalid session")

// Session is one successful login.
type Session struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

var sessionKind = &entity.Kind[Session]{
	Name:  "session",
	Index: "sessions",
	ID:    func(s Session) string { return s.ID },
	WithID: func(s Session, id string) Session {
		s.ID = id
		return s
	},
}

// SessionManager owns session records and their tokens.
type SessionManager struct {
	sessions *entity.Indexed[Session]
	signer   *JWTSigner
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager storing sessions in s and
// signing tokens with secret.
func NewSessionManager(s store.Store, secret []byte, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: entity.NewIndexed(s, sessionKind),
		signer:   NewJWTSigner(secret),
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default().With("component", "sessions"),
	}
}

func (m *SessionManager) setClock(now func() time.Time) {
	m.now = now
	m.signer.now = now
}

// Issue creates a session and returns its signed token.
func (m *SessionManager) Issue(ctx context.Context, subject string) (string, Session, error) {
	now := m.now().UTC()
	session, err := m.sessions.Create(ctx, Session{
		Subject:   subject,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	})
	if err != nil {
		return "", Session{}, fmt.Errorf("creating session: %w", err)
	}

	token, err := m.signer.Generate(session.ID, subject, session.ExpiresAt)
	if err != nil {
		_, _ = m.sessions.Delete(ctx, session.ID)
		return "", Session{}, fmt.Errorf("signing session token: %w", err)
	}

	m.logger.Debug("session issued", "session_id", session.ID)
	return token, session, nil
}

// Validate returns the live session for token. Every rejection wraps
// ErrInvalidSession; storage failures are returned as they are.
func (m *SessionManager) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidSession
	}
	claims, err := m.signer.Verify(token)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	e := m.sessions.Entity(claims.SessionID)
	exists, err := e.Exists(ctx)
	if err != nil {
		return Session{}, err
	}
	if !exists {
		return Session{}, fmt.Errorf("%w: revoked", ErrInvalidSession)
	}

	session, err := e.State(ctx)
	if err != nil {
		return Session{}, err
	}
	if session.Expired(m.now()) {
		return Session{}, fmt.Errorf("%w: expired", ErrInvalidSession)
	}
	return session, nil
}

// Revoke deletes the session whose token is given. Tokens that do not
// verify are ignored; expired records are left to the sweeper.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.signer.Verify(token)
	if err != nil {
		return nil
	}
	return m.RevokeID(ctx, claims.SessionID)
}

// RevokeID deletes a session by id.
func (m *SessionManager) RevokeID(ctx context.Context, id string) error {
	deleted, err := m.sessions.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	if deleted {
		m.logger.Debug("session revoked", "session_id", id)
	}
	return nil
}

// RevokeAllExcept deletes every session other than keepID and returns how
// many were removed.
func (m *SessionManager) RevokeAllExcept(ctx context.Context, keepID string) (int, error) {
	return m.deleteWhere(ctx, func(s Session) bool { return s.ID != keepID })
}

// DeleteExpired removes sessions past their expiry.
func (m *SessionManager) DeleteExpired(ctx context.Context) (int, error) {
	now := m.now()
	return m.deleteWhere(ctx, func(s Session) bool { return s.Expired(now) })
}

func (m *SessionManager) deleteWhere(ctx context.Context, match func(Session) bool) (int, error) {
	all, err := m.sessions.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	n := 0
	for _, s := range all {
		if !match(s) {
			continue
		}
		deleted, err := m.sessions.Delete(ctx, s.ID)
		if err != nil {
			return n, fmt.Errorf("deleting session: %w", err)
		}
		if deleted {
			n++
		}
	}
	return n, nil
}

// RunSweeper deletes expired sessions every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := m.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("sweeping expired sessions", "error", err)
				}
				continue
			}
			if n > 0 {
				m.logger.Info("swept expired sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
