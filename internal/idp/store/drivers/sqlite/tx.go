package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer Store owns the database.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Accounts() store.Accounts                 { return &accountsRepo{db: t.tx} }
func (t *txStore) Tokens() store.Tokens                     { return &tokensRepo{db: t.tx} }
func (t *txStore) Credentials() store.Credentials           { return &credentialsRepo{db: t.tx} }
func (t *txStore) AuthorizedScopes() store.AuthorizedScopes { return &authorizedScopesRepo{db: t.tx} }
