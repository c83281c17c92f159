// Package token signs and verifies HS256 access tokens.
//
// The local identity backend issues them; the Supabase backend only verifies, using the
// project's JWT secret, so a session check does not need a network round trip.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors
var (
	ErrExpired   = errors.New("token expired")
	ErrInvalid   = errors.New("invalid token")
	ErrNoSubject = errors.New("token has no subject")
)

// Claims is the access token payload. Subject carries the identity id.
// UserMetadata matches the claim Supabase puts in its tokens.
type Claims struct {
	Email        string         `json:"email,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a shared secret.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer requires (and stamps) the iss claim.
func WithIssuer(iss string) Option { return func(s *Service) { s.issuer = iss } }

// WithAudience requires (and stamps) the aud claim. Supabase uses "authenticated".
func WithAudience(aud string) Option { return func(s *Service) { s.audience = aud } }

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) Option { return func(s *Service) { s.ttl = ttl } }

// WithClock replaces time.Now. Tests only.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a Service.
// PRE: secret is non-empty
// POST: Returns a Service issuing tokens valid for 24h unless WithTTL is given
func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: secret must not be empty")
	}
	s := &Service{secret: []byte(secret), ttl: 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for the identity.
// PRE: subject is non-empty
// POST: Returns a compact JWS valid for the configured TTL
func (s *Service) Issue(subject, email, id string) (string, error) {
	now := s.now()
	c := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		c.Audience = jwt.ClaimStrings{s.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: signing: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns its claims.
// PRE: none
// POST: Returns claims with a non-empty Subject, or ErrExpired / ErrInvalid / ErrNoSubject
func (s *Service) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if c.Subject == "" {
		return nil, ErrNoSubject
	}
	return c, nil
}
