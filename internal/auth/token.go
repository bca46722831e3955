// ABOUTME: JWT signing and verification for session cookies
// ABOUTME: Uses HS256 with the configured secret; jti carries the session id

package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	SessionID string
	Subject   string
	ExpiresAt time.Time
}

// JWTSigner creates and verifies HS256 session tokens.
type JWTSigner struct {
	secret []byte
	now    func() time.Time
}

// NewJWTSigner creates a signer with the given secret.
func NewJWTSigner(secret []byte) *JWTSigner {
	return &JWTSigner{secret: secret, now: time.Now}
}

// NewSecret returns a random 32-byte signing secret.
func NewSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}
	return b, nil
}

// Generate signs a token for the session.
func (s *JWTSigner) Generate(sessionID, subject string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the signature and expiry and returns the claims.
func (s *JWTSigner) Verify(tokenString string) (TokenClaims, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrExpiredToken
		}
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}

	if claims.ID == "" {
		return TokenClaims{}, fmt.Errorf("%w: jti", ErrMissingClaim)
	}
	if claims.Subject == "" {
		return TokenClaims{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return TokenClaims{
		SessionID: claims.ID,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
