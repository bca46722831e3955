// ABOUTME: Password hashing and verification for the shared OEM password
// ABOUTME: Hashes with bcrypt and still accepts legacy SHA-256 hex digests

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted by ChangePassword.
const MinPasswordLength = 6

var (
	// ErrInvalidPassword is returned when a password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrPasswordTooShort is returned for new passwords under MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// dummyHash keeps verification time constant when no usable hash is stored.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password against hash. needsRehash is true when
// the password matched a legacy SHA-256 digest.
func CheckPassword(hash, password string) (ok, needsRehash bool) {
	if isLegacyHash(hash) {
		digest := LegacyHash(password)
		ok = subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(hash))) == 1
		return ok, ok
	}

	if hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return false, false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}

// LegacyHash returns the unsalted SHA-256 hex digest older deployments
// stored. Only used to migrate and test existing data.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func isLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
