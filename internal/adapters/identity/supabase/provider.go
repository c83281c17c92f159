// Package supabase is the hosted identity backend, speaking the Supabase Auth (GoTrue)
// REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mastery/internal/adapters/identity/token"
	"mastery/internal/domain/identity"
)

// DefaultTimeout bounds a single auth call.
const DefaultTimeout = 10 * time.Second

// Provider implements the identity backend against a Supabase project.
type Provider struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	// verifier checks access tokens locally when the project JWT secret is configured.
	verifier *token.Service
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option { return func(p *Provider) { p.httpClient = hc } }

// WithJWTSecret enables local verification of access tokens.
func WithJWTSecret(secret string) Option {
	return func(p *Provider) {
		if secret == "" {
			return
		}
		v, err := token.NewService(secret, token.WithAudience("authenticated"))
		if err == nil {
			p.verifier = v
		}
	}
}

// NewProvider creates a Provider for the project at baseURL.
// PRE: baseURL and anonKey are non-empty
func NewProvider(baseURL, anonKey string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type userMetadata struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type user struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata userMetadata `json:"user_metadata"`
}

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *user  `json:"user"`
}

// authError covers the error body shapes GoTrue has used across versions.
type authError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (e authError) text() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges email and password for a session.
// PRE: none
// POST: Returns credentials, or an identity.AuthError with the backend's message
func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.Credentials, error) {
	email = identity.NormalizeEmail(email)
	if email == "" || password == "" {
		return identity.Credentials{}, identity.NewAuthError(identity.MsgEmailRequired)
	}
	var s session
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &s); err != nil {
		return identity.Credentials{}, err
	}
	if s.User == nil || s.AccessToken == "" {
		return identity.Credentials{}, errors.New("supabase: sign-in response has no session")
	}
	return credentials(s), nil
}

// SignUp registers a user with the profile stored as user metadata.
// PRE: none
// POST: Returns credentials (AccessToken empty when email confirmation is pending), or an identity.AuthError
func (p *Provider) SignUp(ctx context.Context, in identity.SignUpInput) (identity.Credentials, error) {
	if err := in.Validate(); err != nil {
		return identity.Credentials{}, err
	}
	body := map[string]any{
		"email":    identity.NormalizeEmail(in.Email),
		"password": in.Password,
		"data": userMetadata{
			FullName: strings.TrimSpace(in.FullName),
			Phone:    strings.TrimSpace(in.Phone),
		},
	}

	var raw json.RawMessage
	if err := p.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &raw); err != nil {
		return identity.Credentials{}, err
	}

	// With autoconfirm the answer is a session; otherwise it is the bare user.
	var s session
	if err := json.Unmarshal(raw, &s); err == nil && s.User != nil {
		return credentials(s), nil
	}
	var u user
	if err := json.Unmarshal(raw, &u); err != nil || u.ID == "" {
		return identity.Credentials{}, errors.New("supabase: sign-up response has no user")
	}
	return identity.Credentials{
		Identity: identity.Identity{ID: u.ID, Email: u.Email},
		Profile:  identity.Profile{FullName: u.UserMetadata.FullName, Phone: u.UserMetadata.Phone},
	}, nil
}

// SignOut revokes the session behind accessToken.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := p.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	if errors.Is(err, identity.ErrUnauthorized) {
		// Already expired or revoked.
		return nil
	}
	return err
}

// CurrentUser resolves an access token to its identity and profile.
// PRE: none
// POST: identity.ErrUnauthorized for rejected tokens; any other error means the backend could not be reached
func (p *Provider) CurrentUser(ctx context.Context, accessToken string) (identity.Identity, identity.Profile, error) {
	if accessToken == "" {
		return identity.Identity{}, identity.Profile{}, identity.ErrUnauthorized
	}
	if p.verifier != nil {
		claims, err := p.verifier.Verify(accessToken)
		if err != nil {
			return identity.Identity{}, identity.Profile{}, identity.ErrUnauthorized
		}
		profile := identity.Profile{}
		if v, ok := claims.UserMetadata["full_name"].(string); ok {
			profile.FullName = v
		}
		if v, ok := claims.UserMetadata["phone"].(string); ok {
			profile.Phone = v
		}
		return identity.Identity{ID: claims.Subject, Email: claims.Email}, profile, nil
	}

	var u user
	if err := p.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		if identity.IsAuthError(err) {
			return identity.Identity{}, identity.Profile{}, identity.ErrUnauthorized
		}
		return identity.Identity{}, identity.Profile{}, err
	}
	return identity.Identity{ID: u.ID, Email: u.Email},
		identity.Profile{FullName: u.UserMetadata.FullName, Phone: u.UserMetadata.Phone}, nil
}

// Refresh exchanges a refresh token for a new session.
// PRE: none
// POST: identity.ErrUnauthorized when GoTrue rejects the refresh token; any other error means it could not be reached
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (identity.Credentials, error) {
	if refreshToken == "" {
		return identity.Credentials{}, identity.ErrUnauthorized
	}
	var s session
	body := map[string]string{"refresh_token": refreshToken}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &s); err != nil {
		if identity.IsAuthError(err) {
			return identity.Credentials{}, identity.ErrUnauthorized
		}
		return identity.Credentials{}, err
	}
	if s.User == nil || s.AccessToken == "" {
		return identity.Credentials{}, errors.New("supabase: refresh response has no session")
	}
	return credentials(s), nil
}

// do performs one GoTrue call.
// 401/403 become identity.ErrUnauthorized when a user token was sent, other 4xx become
// identity.AuthError, and 5xx or transport failures are returned as plain errors.
func (p *Provider) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", p.anonKey)
	bearer := p.anonKey
	if accessToken != "" {
		bearer = accessToken
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Warn("supabase_auth_unreachable", "path", path, "error", err)
		return fmt.Errorf("supabase: %s: %w", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("supabase: read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, out)
	case accessToken != "" && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		return identity.ErrUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var ae authError
		_ = json.Unmarshal(raw, &ae)
		msg := ae.text()
		if msg == "" {
			msg = identity.MsgInvalidCredentials
		}
		slog.Info("auth_event", "event", "supabase_rejected", "path", path, "status", resp.StatusCode)
		return identity.NewAuthError(msg)
	default:
		return fmt.Errorf("supabase: %s returned %d", path, resp.StatusCode)
	}
}

func credentials(s session) identity.Credentials {
	return identity.Credentials{
		Identity:     identity.Identity{ID: s.User.ID, Email: s.User.Email},
		Profile:      identity.Profile{FullName: s.User.UserMetadata.FullName, Phone: s.User.UserMetadata.Phone},
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}
