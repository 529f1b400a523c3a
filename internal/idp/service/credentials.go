package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

// DefaultPasswordMinLength applies when no minimum is configured.
const DefaultPasswordMinLength = 6

// CredentialsService stores and checks password hashes for users and
// client secrets for service providers.
type CredentialsService struct {
	Store             store.Store
	Hasher            cryptox.PasswordHasher
	PasswordMinLength int
	Now               func() time.Time
}

func NewCredentialsService(st store.Store, hasher cryptox.PasswordHasher, minLength int) *CredentialsService {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	return &CredentialsService{
		Store:             st,
		Hasher:            hasher,
		PasswordMinLength: minLength,
		Now:               time.Now,
	}
}

// SetPassword replaces the password of an account. Passwords shorter than
// the minimum length (in characters) are refused.
func (s *CredentialsService) SetPassword(ctx context.Context, accountID, password string) error {
	if utf8.RuneCountInString(password) < s.PasswordMinLength {
		return ErrPasswordTooShort
	}
	return s.save(ctx, domain.CredentialsUser, accountID, password)
}

// SetClientSecret replaces the secret of a client.
func (s *CredentialsService) SetClientSecret(ctx context.Context, clientID, secret string) error {
	if secret == "" {
		return ErrInvalidCredentials
	}
	return s.save(ctx, domain.CredentialsClient, clientID, secret)
}

// CheckPassword reports whether password matches the stored credentials.
// Missing credentials never match.
func (s *CredentialsService) CheckPassword(ctx context.Context, typ domain.CredentialsType, id, password string) bool {
	c, err := s.Store.Credentials().GetCredentials(ctx, typ, id)
	if err != nil {
		return false
	}
	return s.Hasher.CheckPassword(password, c.Hash, c.Salt)
}

func (s *CredentialsService) save(ctx context.Context, typ domain.CredentialsType, id, password string) error {
	salt, err := s.Hasher.CreateSalt()
	if err != nil {
		return err
	}
	hash, err := s.Hasher.HashPassword(password, salt)
	if err != nil {
		return err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	return s.Store.Credentials().SaveCredentials(ctx, domain.Credentials{
		Type:      typ,
		ID:        id,
		Hash:      hash,
		Salt:      salt,
		UpdatedAt: now().UTC(),
	})
}

// UserPasswordAuthenticator logs users in with email and password.
type UserPasswordAuthenticator struct {
	Store       store.Store
	Credentials *CredentialsService

	// Tokens, when set, ends the account's sessions on a password change.
	Tokens *TokenHandler
}

// Authenticate returns the account registered under email when password
// matches. Unknown emails are ErrAccountNotFound, wrong passwords
// ErrInvalidCredentials.
func (a *UserPasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	account, err := a.Store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}

	if !a.Credentials.CheckPassword(ctx, domain.CredentialsUser, account.ID, password) {
		return domain.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// SetPassword replaces the password of an account and logs it out of
// every browser session.
func (a *UserPasswordAuthenticator) SetPassword(ctx context.Context, accountID, password string) error {
	if err := a.Credentials.SetPassword(ctx, accountID, password); err != nil {
		return err
	}
	if a.Tokens == nil {
		return nil
	}
	_, err := a.Tokens.EndSessions(ctx, domain.Account{ID: accountID})
	return err
}

// ClientAuthenticator checks client_id/client_secret pairs.
type ClientAuthenticator struct {
	Credentials *CredentialsService
}

// Authenticate returns ErrInvalidClient unless secret is the client's.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, clientID, secret string) error {
	if clientID == "" || secret == "" {
		return ErrInvalidClient
	}
	if !a.Credentials.CheckPassword(ctx, domain.CredentialsClient, clientID, secret) {
		return ErrInvalidClient
	}
	return nil
}
