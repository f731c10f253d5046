package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoToken      = errors.New("no access token configured")
	ErrTokenExpired = errors.New("access token expired")
)

// TokenManager provides access tokens for API requests.
type TokenManager interface {
	// GetToken returns a valid access token.
	GetToken(ctx context.Context) (string, error)
	// SetToken replaces the current token.
	SetToken(token string, expiresAt time.Time)
}

// StaticTokenManager serves a pre-acquired token, typically supplied via
// config or the PMCTL_TOKEN environment variable. It performs no refresh.
type StaticTokenManager struct {
	mutex     sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewStaticTokenManager creates a token manager around a fixed token.
// A zero expiry means the token never expires.
func NewStaticTokenManager(token string, expiresAt time.Time) *StaticTokenManager {
	return &StaticTokenManager{
		token:     token,
		expiresAt: expiresAt,
	}
}

// GetToken returns the stored token, or an error when it is missing or
// past its expiry.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.token == "" {
		return "", ErrNoToken
	}

	if !m.expiresAt.IsZero() && time.Now().After(m.expiresAt) {
		return "", ErrTokenExpired
	}

	return m.token, nil
}

// SetToken replaces the stored token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.token = token
	m.expiresAt = expiresAt
}
