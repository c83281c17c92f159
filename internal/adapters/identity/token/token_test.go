package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestService_IssueVerify verifies a round trip keeps subject and email.
func TestService_IssueVerify(t *testing.T) {
	s, err := NewService("secret-for-tests", WithIssuer("mastery"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	raw, err := s.Issue("u-1", "agent@example.com", "jti-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	c, err := s.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "u-1" || c.Email != "agent@example.com" || c.ID != "jti-1" {
		t.Errorf("claims = %+v", c)
	}
}

// TestService_Verify_Rejects covers the failure cases.
func TestService_Verify_Rejects(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := issuedAt
	s, _ := NewService("secret-for-tests", WithTTL(time.Hour), WithClock(func() time.Time { return clock }))
	raw, _ := s.Issue("u-1", "", "")

	other, _ := NewService("another-secret")
	forged, _ := other.Issue("u-1", "", "")

	noSub, _ := s.Issue("", "", "")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "exp": issuedAt.Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		raw   string
		clock time.Time
		want  error
	}{
		{"wrong secret", forged, issuedAt, ErrInvalid},
		{"alg none", none, issuedAt, ErrInvalid},
		{"garbage", "not.a.jwt", issuedAt, ErrInvalid},
		{"no subject", noSub, issuedAt, ErrNoSubject},
		{"expired", raw, issuedAt.Add(2 * time.Hour), ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = tt.clock
			if _, err := s.Verify(tt.raw); !errors.Is(err, tt.want) {
				t.Errorf("Verify() err = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestService_Audience verifies the aud claim is enforced when configured.
func TestService_Audience(t *testing.T) {
	withAud, _ := NewService("s", WithAudience("authenticated"))
	without, _ := NewService("s")

	raw, _ := without.Issue("u-1", "", "")
	if _, err := withAud.Verify(raw); !errors.Is(err, ErrInvalid) {
		t.Errorf("missing aud err = %v, want ErrInvalid", err)
	}
	raw, _ = withAud.Issue("u-1", "", "")
	if _, err := withAud.Verify(raw); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

// TestNewService_EmptySecret verifies the constructor rejects an empty secret.
func TestNewService_EmptySecret(t *testing.T) {
	if _, err := NewService(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
