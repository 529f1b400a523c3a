package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/httpx"
)

// TokenAuthenticator authenticates requests carrying a token handle.
type TokenAuthenticator struct {
	Tokens *TokenHandler
}

// Authenticate resolves handle to the account holding it. It fails with
// ErrAccountNotFound when no account holds the token, and with
// ErrCredentialExpired when the token is held but expired or the pass does
// not match. Both are ordinary rejections.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, handle string) (domain.Account, domain.Token, error) {
	info, err := Deserialize(handle)
	if err != nil {
		return domain.Account{}, domain.Token{}, ErrAccountNotFound
	}

	st := a.Tokens.Store
	account, err := st.Accounts().GetAccountByTokenID(ctx, info.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, domain.Token{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, domain.Token{}, err
	}

	t, err := st.Tokens().GetToken(ctx, info.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Revoked between the two lookups.
		return domain.Account{}, domain.Token{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, domain.Token{}, err
	}

	if !a.Tokens.CheckTokenValidity(ctx, account, &t) ||
		!a.Tokens.Hasher.CheckPassword(info.Pass, t.Hash, t.Salt) {
		return domain.Account{}, domain.Token{}, ErrCredentialExpired
	}

	return account, t, nil
}

// AuthenticateBearer accepts access tokens only.
func (a *TokenAuthenticator) AuthenticateBearer(ctx context.Context, handle string) (httpx.Principal, error) {
	account, t, err := a.Authenticate(ctx, handle)
	if err != nil {
		return httpx.Principal{}, err
	}

	at, ok := domain.PayloadAs[*domain.AccessToken](t)
	if !ok {
		return httpx.Principal{}, ErrCredentialExpired
	}

	return httpx.Principal{
		AccountID: account.ID,
		ClientID:  at.ClientID,
		TokenID:   t.ID,
		Scopes:    at.ScopeIDs,
	}, nil
}

var _ httpx.BearerAuthenticator = (*TokenAuthenticator)(nil)
