package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mastery/internal/domain/identity"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
	MaxNameLength  = 200
)

// Lockout policy for repeated failed sign-ins.
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// Domain errors
var (
	ErrInvalidEmail  = errors.New("email must contain '@'")
	ErrEmptyEmail    = errors.New("email cannot be empty")
	ErrEmailTooLong  = errors.New("email cannot exceed 254 characters")
	ErrNameTooLong   = errors.New("full name cannot exceed 200 characters")
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrWrongPassword = errors.New("incorrect password")
	ErrNotFound      = errors.New("account not found")
)

// Account is a locally stored login, used when no hosted identity backend is configured.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if len(a.FullName) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is at least identity.MinPasswordLength characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < identity.MinPasswordLength {
		return identity.NewAuthError(identity.MsgPasswordTooShort)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is currently locked out.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after MaxFailedLogins.
// PRE: Account exists
// POST: FailedLogins incremented; LockedUntil set once the limit is reached
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// PRE: Account exists
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// Identity returns the public identity for this account.
func (a *Account) Identity() identity.Identity {
	return identity.Identity{ID: a.ID, Email: a.Email}
}

// Profile returns the profile captured at sign-up.
func (a *Account) Profile() identity.Profile {
	return identity.Profile{FullName: a.FullName, Phone: a.Phone}
}
