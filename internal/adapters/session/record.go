// Package session persists browser sessions. A session is referenced by an opaque random
// token carried in a cookie; the record behind it holds the cached identity and the
// identity backend's tokens.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"mastery/internal/domain/identity"
)

// DefaultTTL is how long a session lives after sign-in.
const DefaultTTL = 24 * time.Hour

// Record is what a session token refers to.
type Record struct {
	Identity     identity.Identity `json:"identity"`
	Profile      identity.Profile  `json:"profile"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Backend stores session records.
type Backend interface {
	Create(ctx context.Context, rec Record) (string, error)
	// Get reports false for unknown or expired tokens. An error means the backend is unavailable.
	Get(ctx context.Context, token string) (Record, bool, error)
	Delete(ctx context.Context, token string) error
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
