package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// sessionLabel is the fixed input of the session credential. Every
// successful login yields the identical value, so the cookie works as a
// shared admin flag rather than a per-user session.
const sessionLabel = "admin"

// SessionService issues and validates the admin session credential and
// checks the shared admin password.
type SessionService struct {
	Secret   []byte
	Password string
	TTL      time.Duration
}

// Credential returns hex(HMAC-SHA256(secret, "admin")), the exact cookie
// value a logged-in browser holds.
func (s SessionService) Credential() string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(sessionLabel))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether token equals the expected credential exactly.
func (s SessionService) Verify(token string) bool {
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(s.Credential()))
}

// CheckPassword compares a submitted password against the configured
// secret. A secret that looks like a bcrypt hash is verified as one;
// anything else is compared in constant time.
func (s SessionService) CheckPassword(raw string) error {
	if s.Password == "" {
		return ErrServerMisconfigured("Server not configured")
	}
	if raw == "" {
		return ErrUnauthorized("Invalid credentials")
	}
	if strings.HasPrefix(s.Password, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(s.Password), []byte(raw)) != nil {
			return ErrUnauthorized("Invalid credentials")
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(raw), []byte(s.Password)) != 1 {
		return ErrUnauthorized("Invalid credentials")
	}
	return nil
}
