package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestTokenAuthenticator(t *testing.T) {
	ctx := context.Background()
	h, clock := newTestHandler(t)
	a := &TokenAuthenticator{Tokens: h}
	alice := newTestAccount(t, h.Store, "alice@example.com")

	access, err := h.CreateAccessToken(ctx, alice, time.Minute, nil)
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		account, tok, err := a.Authenticate(ctx, access.Handle)
		require.NoError(t, err)
		require.Equal(t, alice.ID, account.ID)
		require.Equal(t, access.Token.ID, tok.ID)
	})

	t.Run("malformed handle", func(t *testing.T) {
		_, _, err := a.Authenticate(ctx, "nope")
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		ghost := domain.Token{ID: idx.New().String(), CreatedAt: t0, TTL: time.Hour}
		_, _, err := a.Authenticate(ctx, Serialize(ghost, "pass"))
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("wrong pass", func(t *testing.T) {
		_, _, err := a.Authenticate(ctx, Serialize(access.Token, "guess"))
		require.ErrorIs(t, err, ErrCredentialExpired)
	})

	t.Run("expired", func(t *testing.T) {
		clock.Set(t0.Add(time.Minute))
		defer clock.Set(t0)

		_, _, err := a.Authenticate(ctx, access.Handle)
		require.ErrorIs(t, err, ErrCredentialExpired)
	})

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, h.RevokeToken(ctx, alice, access.Token))

		_, _, err := a.Authenticate(ctx, access.Handle)
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestAuthenticateBearer(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler(t)
	a := &TokenAuthenticator{Tokens: h}
	alice := newTestAccount(t, h.Store, "alice@example.com")

	sid, err := h.CreateSidToken(ctx, alice, "ua")
	require.NoError(t, err)
	code, err := h.CreateAuthorizationCode(ctx, sid.Token, codeRequest("openid", "profile"))
	require.NoError(t, err)
	grant, err := h.RedeemAuthorizationCode(ctx, code.Handle, "client-1", "https://app.example/callback", "")
	require.NoError(t, err)

	p, err := a.AuthenticateBearer(ctx, grant.AccessToken.Handle)
	require.NoError(t, err)
	require.Equal(t, alice.ID, p.AccountID)
	require.Equal(t, "client-1", p.ClientID)
	require.Equal(t, grant.AccessToken.Token.ID, p.TokenID)
	require.ElementsMatch(t, []string{"openid", "profile"}, p.Scopes)

	// A session cookie is not a bearer token.
	_, err = a.AuthenticateBearer(ctx, sid.Handle)
	require.ErrorIs(t, err, ErrCredentialExpired)
}
