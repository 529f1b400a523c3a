package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the drivers. The
// repositories hang off it so that a Tx exposes the same surface and nobody
// opens a transaction inside a transaction by accident.
type Store interface {
	Accounts() Accounts
	Tokens() Tokens
	Credentials() Credentials
	AuthorizedScopes() AuthorizedScopes

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or
	// Rollback it.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Inside fn only the tx repositories may be
	// used.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a; the email must be unique (case-insensitive).
	CreateAccount(ctx context.Context, a domain.Account) error

	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByTokenID returns the account owning the token.
	GetAccountByTokenID(ctx context.Context, tokenID string) (domain.Account, error)

	// ListAccountIDsWithTokens returns every account holding at least one
	// token, for housekeeping sweeps.
	ListAccountIDsWithTokens(ctx context.Context) ([]string, error)
}

type Tokens interface {
	// CreateToken registers t on its account. Unknown accounts are
	// ErrNotFound, duplicate ids ErrAlreadyExists.
	CreateToken(ctx context.Context, t domain.Token) error

	GetToken(ctx context.Context, id string) (domain.Token, error)

	// ListAccountTokens returns the tokens of an account, oldest first.
	ListAccountTokens(ctx context.Context, accountID string) ([]domain.Token, error)

	// HasToken reports whether the account currently holds tokenID.
	HasToken(ctx context.Context, accountID, tokenID string) (bool, error)

	// DeleteTokens removes the listed tokens from the account in one
	// statement and returns how many were removed. Ids that are already
	// gone are ignored.
	DeleteTokens(ctx context.Context, accountID string, ids []string) (int64, error)

	// RevokeToken removes the token and every token descending from it,
	// returning how many were removed.
	RevokeToken(ctx context.Context, id string) (int64, error)

	// RevokeDescendants removes every token descending from ancestorID,
	// even when ancestorID itself is gone.
	RevokeDescendants(ctx context.Context, ancestorID string) (int64, error)

	// RevokeTokensForAccount removes every token of the account, optionally
	// restricted to one kind.
	RevokeTokensForAccount(ctx context.Context, accountID string, kind domain.TokenKind) (int64, error)

	// RevokeTokensForClient removes the codes, access and refresh tokens
	// issued to a client.
	RevokeTokensForClient(ctx context.Context, clientID string) (int64, error)

	// DeleteExpiredTokens removes tokens with CreatedAt+TTL <= now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type Credentials interface {
	// SaveCredentials inserts or replaces the credentials of (Type, ID).
	SaveCredentials(ctx context.Context, c domain.Credentials) error

	GetCredentials(ctx context.Context, typ domain.CredentialsType, id string) (domain.Credentials, error)

	// DeleteCredentials removes the credentials of (typ, id), or returns
	// ErrNotFound.
	DeleteCredentials(ctx context.Context, typ domain.CredentialsType, id string) error
}

type AuthorizedScopes interface {
	// GetAuthorizedScopes returns the grant of account to client.
	GetAuthorizedScopes(ctx context.Context, accountID, clientID string) (domain.AuthorizedScopes, error)

	// AddAuthorizedScopes adds scopes and claims to the grant, creating it
	// when missing. Existing entries are kept.
	AddAuthorizedScopes(ctx context.Context, accountID, clientID string, scopeIDs, claimNames []string, now time.Time) error

	// DeleteAuthorizedScopes removes the grant and reports whether it
	// existed.
	DeleteAuthorizedScopes(ctx context.Context, accountID, clientID string) (bool, error)

	// DeleteAuthorizedScopesForClient removes every grant to a client.
	DeleteAuthorizedScopesForClient(ctx context.Context, clientID string) (int64, error)

	// RemoveScopesFromAll pulls scopeIDs from every grant and returns how
	// many grants were changed.
	RemoveScopesFromAll(ctx context.Context, scopeIDs []string) (int64, error)
}
