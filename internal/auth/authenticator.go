// ABOUTME: Login, logout and password change for the shared OEM credential
// ABOUTME: Combines the stored password hash with session issuance and revocation

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// PasswordStore holds the OEM password hash.
type PasswordStore interface {
	// PasswordHash returns the stored hash, seeding the default if needed.
	PasswordHash(ctx context.Context) (string, error)
	// SetPasswordHash replaces the stored hash.
	SetPasswordHash(ctx context.Context, hash string) error
}

// Authenticator implements the OEM session gate.
type Authenticator struct {
	passwords PasswordStore
	sessions  *SessionManager
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(passwords PasswordStore, sessions *SessionManager) *Authenticator {
	return &Authenticator{
		passwords: passwords,
		sessions:  sessions,
		logger:    slog.Default().With("component", "auth"),
	}
}

// Sessions returns the session manager.
func (a *Authenticator) Sessions() *SessionManager {
	return a.sessions
}

// Login checks password and starts a session. A wrong password returns
// ErrInvalidPassword.
func (a *Authenticator) Login(ctx context.Context, password string) (string, Session, error) {
	hash, err := a.passwords.PasswordHash(ctx)
	if err != nil {
		return "", Session{}, fmt.Errorf("loading password hash: %w", err)
	}

	ok, needsRehash := CheckPassword(hash, password)
	if !ok {
		a.logger.Warn("oem login failed")
		return "", Session{}, ErrInvalidPassword
	}

	if needsRehash {
		a.upgradeHash(ctx, password)
	}

	token, session, err := a.sessions.Issue(ctx, SessionSubject)
	if err != nil {
		return "", Session{}, err
	}
	a.logger.Info("oem login successful", "session_id", session.ID)
	return token, session, nil
}

// upgradeHash replaces a legacy digest with bcrypt. Failures only cost a
// repeat upgrade on the next login.
func (a *Authenticator) upgradeHash(ctx context.Context, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		a.logger.Error("rehashing legacy password", "error", err)
		return
	}
	if err := a.passwords.SetPasswordHash(ctx, hash); err != nil {
		a.logger.Error("storing upgraded password hash", "error", err)
		return
	}
	a.logger.Info("upgraded legacy password hash to bcrypt")
}

// Authenticate returns the live session for token.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Session, error) {
	return a.sessions.Validate(ctx, token)
}

// Logout ends the session behind token. Unknown tokens are not an error.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.sessions.Revoke(ctx, token)
}

// ChangePassword stores a new password and ends every session except
// current.
func (a *Authenticator) ChangePassword(ctx context.Context, current Session, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := a.passwords.SetPasswordHash(ctx, hash); err != nil {
		return fmt.Errorf("storing password hash: %w", err)
	}

	n, err := a.sessions.RevokeAllExcept(ctx, current.ID)
	if err != nil {
		return err
	}
	a.logger.Info("oem password changed", "revoked_sessions", n)
	return nil
}
