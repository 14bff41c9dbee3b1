// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth issues and validates the administrator's bearer tokens.
// Backup and restore endpoints are administrator-only; there is a single
// admin identity configured through the environment, with the password
// stored as a bcrypt hash.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tzustu63/ogacrm-sub001/internal/config"
)

// RoleAdmin is the only role the subsystem knows about.
const RoleAdmin = "admin"

var (
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates a missing, malformed, expired, or
	// mis-signed token.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the token payload.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens for the configured admin.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	username string
	password string
}

// NewManager builds a token manager from the auth configuration.
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
	}
}

// Authenticate checks the admin credentials and issues a token on
// success. The configured password is normally a bcrypt hash; a
// plaintext value is accepted for development setups and compared in
// constant time.
func (m *Manager) Authenticate(username, password string) (string, time.Time, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) != 1 {
		// Burn a comparison anyway so unknown usernames cost the same.
		checkPassword(m.password, password) //nolint:errcheck // Timing equalization only
		return "", time.Time{}, ErrInvalidCredentials
	}
	if !checkPassword(m.password, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// checkPassword compares the supplied password against the configured
// value, which is either a bcrypt hash or, as a development fallback,
// plaintext.
func checkPassword(configured, supplied string) bool {
	if strings.HasPrefix(configured, "$2a$") || strings.HasPrefix(configured, "$2b$") || strings.HasPrefix(configured, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}
