package identity

import (
	"errors"
	"strings"
)

// MinPasswordLength is the shortest password the identity backend accepts at sign-up.
const MinPasswordLength = 6

// Identity is the authenticated user as issued by the identity backend.
// The portal only ever holds a read-only copy.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile carries the contact details captured at sign-up.
type Profile struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// Credentials is the result of a successful sign-in or sign-up.
// AccessToken may be empty when the backend requires email confirmation first.
type Credentials struct {
	Identity     Identity
	Profile      Profile
	AccessToken  string
	RefreshToken string
}

// SignUpInput carries the fields collected by the sign-up form.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// AuthError is a credential problem whose message is safe to show the user verbatim.
type AuthError struct {
	Message string
}

// Error implements error.
func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError returns an AuthError with the given message.
func NewAuthError(msg string) *AuthError {
	return &AuthError{Message: msg}
}

// ErrUnauthorized is returned when an access token is missing, expired or revoked.
var ErrUnauthorized = errors.New("session is no longer valid")

// Messages surfaced to the user.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgAlreadyRegistered  = "User already registered"
	MsgPasswordTooShort   = "Password should be at least 6 characters"
	MsgEmailRequired      = "Email and password are required"
)

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Validate checks the sign-up input before it is sent to the identity backend.
// PRE: none
// POST: Returns an AuthError describing the first problem, or nil
func (in SignUpInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return NewAuthError(MsgEmailRequired)
	}
	if len(in.Password) < MinPasswordLength {
		return NewAuthError(MsgPasswordTooShort)
	}
	return nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
