package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) SaveCredentials(ctx context.Context, c domain.Credentials) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (type, id, hash, salt, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (type, id) DO UPDATE SET
			hash = excluded.hash,
			salt = excluded.salt,
			updated_at = excluded.updated_at`,
		string(c.Type), c.ID, c.Hash, c.Salt, toMillis(c.UpdatedAt),
	)
	return err
}

func (r *credentialsRepo) GetCredentials(
	ctx context.Context,
	typ domain.CredentialsType,
	id string,
) (domain.Credentials, error) {
	var (
		c       domain.Credentials
		t       string
		updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT type, id, hash, salt, updated_at FROM credentials WHERE type = ? AND id = ?`,
		string(typ), id,
	).Scan(&t, &c.ID, &c.Hash, &c.Salt, &updated)
	if err != nil {
		return domain.Credentials{}, mapNotFound(err)
	}
	c.Type = domain.CredentialsType(t)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (r *credentialsRepo) DeleteCredentials(ctx context.Context, typ domain.CredentialsType, id string) error {
	n, err := rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE type = ? AND id = ?`, string(typ), id))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
