// Package local is the built-in identity backend: bcrypt password accounts in the
// portal database with HS256 access tokens.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mastery/internal/adapters/identity/token"
	accountStore "mastery/internal/adapters/storage/account"
	"mastery/internal/domain/account"
	"mastery/internal/domain/identity"
)

// MsgAccountLocked is shown while an account is locked out.
const MsgAccountLocked = "Too many failed sign-in attempts. Please try again later."

// AccountStore is the storage the provider needs.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Create(ctx context.Context, value account.Account) error
	Save(ctx context.Context, value account.Account) error
}

// Provider implements the identity backend over AccountStore.
type Provider struct {
	accounts AccountStore
	tokens   *token.Service
	now      func() time.Time
	newID    func() string
}

// NewProvider creates a Provider.
func NewProvider(accounts AccountStore, tokens *token.Service) *Provider {
	return &Provider{
		accounts: accounts,
		tokens:   tokens,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SignIn checks the password and issues an access token.
// PRE: none
// POST: Returns credentials, or an identity.AuthError for bad credentials or a locked account
// INVARIANT: a failed attempt is counted toward the lockout
func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.Credentials, error) {
	email = identity.NormalizeEmail(email)
	if email == "" || password == "" {
		return identity.Credentials{}, identity.NewAuthError(identity.MsgEmailRequired)
	}

	acct, err := p.accounts.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return identity.Credentials{}, identity.NewAuthError(identity.MsgInvalidCredentials)
	}
	if err != nil {
		return identity.Credentials{}, fmt.Errorf("load account: %w", err)
	}

	now := p.now()
	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return identity.Credentials{}, identity.NewAuthError(MsgAccountLocked)
	}

	if err := acct.CheckPassword(password); err != nil {
		acct.RecordFailedLogin(now)
		if err := p.accounts.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "login_save_failed", "email", email, "error", err)
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return identity.Credentials{}, identity.NewAuthError(identity.MsgInvalidCredentials)
	}

	if acct.FailedLogins > 0 {
		acct.ResetFailedLogins()
		if err := p.accounts.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "login_save_failed", "email", email, "error", err)
		}
	}

	return p.credentials(acct)
}

// SignUp creates an account and signs it in.
// PRE: none
// POST: Returns credentials, or an identity.AuthError for a short password or taken email
func (p *Provider) SignUp(ctx context.Context, in identity.SignUpInput) (identity.Credentials, error) {
	if err := in.Validate(); err != nil {
		return identity.Credentials{}, err
	}

	acct := account.Account{
		ID:        p.newID(),
		Email:     identity.NormalizeEmail(in.Email),
		FullName:  strings.TrimSpace(in.FullName),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: p.now(),
	}
	if err := acct.Validate(); err != nil {
		return identity.Credentials{}, identity.NewAuthError(err.Error())
	}
	if err := acct.SetPassword(in.Password); err != nil {
		return identity.Credentials{}, err
	}

	if err := p.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, accountStore.ErrEmailTaken) {
			slog.Info("auth_event", "event", "signup_rejected", "email", acct.Email, "reason", "already_registered")
			return identity.Credentials{}, identity.NewAuthError(identity.MsgAlreadyRegistered)
		}
		return identity.Credentials{}, fmt.Errorf("create account: %w", err)
	}

	slog.Info("auth_event", "event", "signup_success", "account_id", acct.ID, "email", acct.Email)
	return p.credentials(acct)
}

// SignOut has nothing to revoke: access tokens are only ever held in a server-side
// session record, and deleting that record ends the session.
func (p *Provider) SignOut(context.Context, string) error {
	return nil
}

// CurrentUser resolves an access token to its identity and profile.
// PRE: none
// POST: Returns identity.ErrUnauthorized for bad tokens or deleted accounts; other errors mean the check could not complete
func (p *Provider) CurrentUser(ctx context.Context, accessToken string) (identity.Identity, identity.Profile, error) {
	claims, err := p.tokens.Verify(accessToken)
	if err != nil {
		return identity.Identity{}, identity.Profile{}, identity.ErrUnauthorized
	}
	acct, err := p.accounts.GetByID(ctx, claims.Subject)
	if errors.Is(err, account.ErrNotFound) {
		return identity.Identity{}, identity.Profile{}, identity.ErrUnauthorized
	}
	if err != nil {
		return identity.Identity{}, identity.Profile{}, fmt.Errorf("load account: %w", err)
	}
	return acct.Identity(), acct.Profile(), nil
}

// Refresh always fails: local sessions carry no refresh token and end with the access token.
func (p *Provider) Refresh(context.Context, string) (identity.Credentials, error) {
	return identity.Credentials{}, identity.ErrUnauthorized
}

func (p *Provider) credentials(acct account.Account) (identity.Credentials, error) {
	access, err := p.tokens.Issue(acct.ID, acct.Email, p.newID())
	if err != nil {
		return identity.Credentials{}, err
	}
	return identity.Credentials{
		Identity:    acct.Identity(),
		Profile:     acct.Profile(),
		AccessToken: access,
	}, nil
}
