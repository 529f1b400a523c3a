package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/oauthx"
)

// AuthorizationService records which scopes and claims each account has
// granted to each client. Grants only grow; they shrink only through the
// explicit revoke operations.
type AuthorizationService struct {
	Store store.Store
	Now   func() time.Time
}

func NewAuthorizationService(st store.Store) *AuthorizationService {
	return &AuthorizationService{Store: st, Now: time.Now}
}

// GetAuthorizedScopes returns what accountID granted to clientID. No grant
// yields an empty set.
func (s *AuthorizationService) GetAuthorizedScopes(ctx context.Context, accountID, clientID string) (oauthx.ScopesAndClaims, error) {
	rec, err := s.Store.AuthorizedScopes().GetAuthorizedScopes(ctx, accountID, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return oauthx.NewScopesAndClaims(nil, nil), nil
	}
	if err != nil {
		return oauthx.ScopesAndClaims{}, err
	}
	return oauthx.NewScopesAndClaims(rec.ScopeIDs, rec.ClaimNames), nil
}

// NeedsConsent reports whether requested goes beyond the current grant.
func (s *AuthorizationService) NeedsConsent(ctx context.Context, accountID, clientID string, requested oauthx.ScopesAndClaims) (bool, error) {
	granted, err := s.GetAuthorizedScopes(ctx, accountID, clientID)
	if err != nil {
		return false, err
	}
	return !granted.ContainsAll(requested), nil
}

// Authorize adds sc to the grant of accountID to clientID and returns the
// resulting grant. An empty sc writes nothing.
func (s *AuthorizationService) Authorize(ctx context.Context, accountID, clientID string, sc oauthx.ScopesAndClaims) (oauthx.ScopesAndClaims, error) {
	if sc.IsEmpty() {
		return s.GetAuthorizedScopes(ctx, accountID, clientID)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	var merged oauthx.ScopesAndClaims
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		repo := tx.AuthorizedScopes()
		if err := repo.AddAuthorizedScopes(ctx, accountID, clientID, sc.ScopeIDs(), sc.ClaimNames(), now().UTC()); err != nil {
			return err
		}
		rec, err := repo.GetAuthorizedScopes(ctx, accountID, clientID)
		if err != nil {
			return err
		}
		merged = oauthx.NewScopesAndClaims(rec.ScopeIDs, rec.ClaimNames)
		return nil
	})
	if err != nil {
		return oauthx.ScopesAndClaims{}, err
	}
	return merged, nil
}

// Revoke drops the whole grant of accountID to clientID and reports
// whether there was one.
func (s *AuthorizationService) Revoke(ctx context.Context, accountID, clientID string) (bool, error) {
	return s.Store.AuthorizedScopes().DeleteAuthorizedScopes(ctx, accountID, clientID)
}

// RemoveClient drops every grant to clientID, the codes and tokens issued
// to it and its secret. It returns how many grants were dropped.
func (s *AuthorizationService) RemoveClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.AuthorizedScopes().DeleteAuthorizedScopesForClient(ctx, clientID)
		if err != nil {
			return err
		}
		if _, err = tx.Tokens().RevokeTokensForClient(ctx, clientID); err != nil {
			return err
		}
		err = tx.Credentials().DeleteCredentials(ctx, domain.CredentialsClient, clientID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	return n, err
}

// RevokeForAllUsers removes scopeIDs from every grant, for when a scope is
// withdrawn. It returns how many grants changed.
func (s *AuthorizationService) RevokeForAllUsers(ctx context.Context, scopeIDs []string) (int64, error) {
	if len(scopeIDs) == 0 {
		return 0, nil
	}
	return s.Store.AuthorizedScopes().RemoveScopesFromAll(ctx, scopeIDs)
}
