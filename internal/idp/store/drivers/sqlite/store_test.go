package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createAccount(t *testing.T, s store.Store, id, email string) domain.Account {
	t.Helper()
	a := domain.Account{ID: id, Email: email}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	createAccount(t, s, "acct-1", "Alice@Example.com")

	got, err := s.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "acct-1", got.ID)
	require.False(t, got.CreatedAt.IsZero())

	err = s.Accounts().CreateAccount(ctx, domain.Account{ID: "acct-2", Email: "ALICE@example.com"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Accounts().GetAccountByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTokensRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "acct", "a@example.com")

	tokens := []domain.Token{
		{
			ID: "sid", AccountID: "acct", CreatedAt: t0, TTL: 2 * time.Hour,
			Hash: []byte("h"), Salt: []byte("s"),
			Payload: &domain.SidToken{AuthenticatedAt: t0, UserAgentFingerprint: []byte{1, 2, 3}},
		},
		{
			ID: "code", AccountID: "acct", CreatedAt: t0, TTL: time.Minute, AncestorIDs: []string{"sid"},
			Payload: &domain.AuthorizationCode{
				ClientID: "client", ScopeIDs: []string{"openid"}, ClaimNames: []string{"email"},
				Nonce: "n", RedirectURI: "https://rp/cb", CodeChallenge: "cc",
			},
		},
		{
			ID: "refresh", AccountID: "acct", CreatedAt: t0, TTL: 100 * 365 * 24 * time.Hour,
			AncestorIDs: []string{"sid", "code"},
			Payload:     &domain.RefreshToken{ClientID: "client", ScopeIDs: []string{"openid"}},
		},
		{
			ID: "access", AccountID: "acct", CreatedAt: t0.Add(time.Second), TTL: time.Hour,
			AncestorIDs: []string{"sid", "code"},
			Payload:     &domain.AccessToken{ClientID: "client", ScopeIDs: []string{"openid"}, RefreshTokenID: "refresh"},
		},
		{ID: "once", AccountID: "acct", CreatedAt: t0.Add(2 * time.Second), TTL: time.Minute, Payload: &domain.OneTimeToken{}},
	}
	for _, tok := range tokens {
		require.NoError(t, s.Tokens().CreateToken(ctx, tok))
	}

	for _, want := range tokens {
		got, err := s.Tokens().GetToken(ctx, want.ID)
		require.NoError(t, err)
		require.Equal(t, want, got, want.ID)
	}

	list, err := s.Tokens().ListAccountTokens(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, list, len(tokens))
	require.Equal(t, []string{"sid", "code"}, list[3].AncestorIDs)

	owner, err := s.Accounts().GetAccountByTokenID(ctx, "access")
	require.NoError(t, err)
	require.Equal(t, "acct", owner.ID)

	ids, err := s.Accounts().ListAccountIDsWithTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"acct"}, ids)
}

func TestCreateTokenErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "acct", "a@example.com")

	tok := domain.Token{ID: "x", AccountID: "acct", CreatedAt: t0, TTL: time.Minute, Payload: &domain.OneTimeToken{}}
	require.NoError(t, s.Tokens().CreateToken(ctx, tok))
	require.ErrorIs(t, s.Tokens().CreateToken(ctx, tok), store.ErrAlreadyExists)

	tok.ID, tok.AccountID = "y", "nobody"
	require.ErrorIs(t, s.Tokens().CreateToken(ctx, tok), store.ErrNotFound)

	require.Error(t, s.Tokens().CreateToken(ctx, domain.Token{ID: "z", AccountID: "acct"}))
}

func TestCreateTokenLineageIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "acct", "a@example.com")

	tok := domain.Token{
		ID: "code", AccountID: "acct", CreatedAt: t0, TTL: time.Minute,
		AncestorIDs: []string{"sid-1"},
		Payload:     &domain.AuthorizationCode{ClientID: "client"},
	}

	// Inside a transaction the rows go with it.
	errAbort := errors.New("abort")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Tokens().CreateToken(ctx, tok))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	_, err = s.Tokens().GetToken(ctx, "code")
	require.ErrorIs(t, err, store.ErrNotFound)
	n, err := s.Tokens().RevokeDescendants(ctx, "sid-1")
	require.NoError(t, err)
	require.Zero(t, n)

	tok.AncestorIDs = []string{"sid-2", "other"}
	require.NoError(t, s.Tokens().CreateToken(ctx, tok))
	got, err := s.Tokens().GetToken(ctx, "code")
	require.NoError(t, err)
	require.Equal(t, []string{"sid-2", "other"}, got.AncestorIDs)

	// A duplicate id adds no lineage to the stored token.
	tok.AncestorIDs = []string{"sid-3"}
	require.ErrorIs(t, s.Tokens().CreateToken(ctx, tok), store.ErrAlreadyExists)
	n, err = s.Tokens().RevokeDescendants(ctx, "sid-3")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRevocation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "acct", "a@example.com")

	mk := func(id string, ancestors ...string) {
		require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{
			ID: id, AccountID: "acct", CreatedAt: t0, TTL: time.Hour, AncestorIDs: ancestors,
			Payload: &domain.AccessToken{ClientID: "client"},
		}))
	}
	has := func(id string) bool {
		ok, err := s.Tokens().HasToken(ctx, "acct", id)
		require.NoError(t, err)
		return ok
	}

	mk("root")
	mk("child", "root")
	mk("grandchild", "root", "child")
	mk("other")

	n, err := s.Tokens().RevokeToken(ctx, "child")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.True(t, has("root"))
	require.False(t, has("child"))
	require.False(t, has("grandchild"))

	n, err = s.Tokens().RevokeToken(ctx, "child")
	require.NoError(t, err)
	require.Zero(t, n)

	mk("orphan", "gone")
	n, err = s.Tokens().RevokeDescendants(ctx, "gone")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Tokens().DeleteTokens(ctx, "acct", []string{"root", "missing"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Tokens().DeleteTokens(ctx, "someone-else", []string{"other"})
	require.NoError(t, err)
	require.Zero(t, n)
	require.True(t, has("other"))

	n, err = s.Tokens().RevokeTokensForClient(ctx, "client")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRevokeTokensForAccountByKind(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "acct", "a@example.com")

	require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{ID: "a", AccountID: "acct", CreatedAt: t0, TTL: time.Hour, Payload: &domain.AccessToken{}}))
	require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{ID: "s", AccountID: "acct", CreatedAt: t0, TTL: time.Hour, Payload: &domain.SidToken{}}))

	n, err := s.Tokens().RevokeTokensForAccount(ctx, "acct", domain.KindSidToken)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Tokens().RevokeTokensForAccount(ctx, "acct", "")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestDeleteExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "acct", "a@example.com")

	require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{ID: "short", AccountID: "acct", CreatedAt: t0, TTL: time.Minute, Payload: &domain.OneTimeToken{}}))
	require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{ID: "long", AccountID: "acct", CreatedAt: t0, TTL: time.Hour, Payload: &domain.OneTimeToken{}}))

	n, err := s.Tokens().DeleteExpiredTokens(ctx, t0.Add(time.Minute-time.Millisecond))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.Tokens().DeleteExpiredTokens(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.Tokens().GetToken(ctx, "short")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	c := domain.Credentials{Type: domain.CredentialsUser, ID: "acct", Hash: []byte("hash"), Salt: []byte("salt")}
	require.NoError(t, s.Credentials().SaveCredentials(ctx, c))

	c.Hash = []byte("new-hash")
	c.Salt = nil
	require.NoError(t, s.Credentials().SaveCredentials(ctx, c))

	got, err := s.Credentials().GetCredentials(ctx, domain.CredentialsUser, "acct")
	require.NoError(t, err)
	require.Equal(t, []byte("new-hash"), got.Hash)
	require.Nil(t, got.Salt)

	_, err = s.Credentials().GetCredentials(ctx, domain.CredentialsClient, "acct")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Credentials().DeleteCredentials(ctx, domain.CredentialsUser, "acct"))
	require.ErrorIs(t, s.Credentials().DeleteCredentials(ctx, domain.CredentialsUser, "acct"), store.ErrNotFound)
}

func TestAuthorizedScopes(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createAccount(t, s, "a1", "a1@example.com")
	createAccount(t, s, "a2", "a2@example.com")
	repo := s.AuthorizedScopes()

	_, err := repo.GetAuthorizedScopes(ctx, "a1", "c1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.AddAuthorizedScopes(ctx, "a1", "c1", []string{"s1"}, []string{"email"}, t0))
	require.NoError(t, repo.AddAuthorizedScopes(ctx, "a1", "c1", []string{"s2", "s1"}, nil, t0.Add(time.Minute)))
	require.NoError(t, repo.AddAuthorizedScopes(ctx, "a2", "c1", []string{"s1"}, nil, t0))
	require.NoError(t, repo.AddAuthorizedScopes(ctx, "a2", "c2", []string{"s3"}, nil, t0))

	got, err := repo.GetAuthorizedScopes(ctx, "a1", "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2"}, got.ScopeIDs)
	require.Equal(t, []string{"email"}, got.ClaimNames)
	require.Equal(t, t0.Add(time.Minute), got.UpdatedAt)

	require.ErrorIs(t, repo.AddAuthorizedScopes(ctx, "nobody", "c1", nil, nil, t0), store.ErrNotFound)

	n, err := repo.RemoveScopesFromAll(ctx, []string{"s1", "unknown"})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err = repo.GetAuthorizedScopes(ctx, "a1", "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"s2"}, got.ScopeIDs)

	n, err = repo.DeleteAuthorizedScopesForClient(ctx, "c1")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	ok, err := repo.DeleteAuthorizedScopes(ctx, "a2", "c2")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.DeleteAuthorizedScopes(ctx, "a2", "c2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Accounts().CreateAccount(ctx, domain.Account{ID: "tx", Email: "tx@example.com"}))
		return store.ErrAlreadyExists
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Accounts().GetAccountByID(ctx, "tx")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.ErrorIs(t, tx.WithTx(ctx, func(store.Tx) error { return nil }), sql.ErrTxDone)
		return tx.Accounts().CreateAccount(ctx, domain.Account{ID: "tx", Email: "tx@example.com"})
	}))
	_, err = s.Accounts().GetAccountByID(ctx, "tx")
	require.NoError(t, err)
}
