package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, admin, created_at, updated_at`

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Admin, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByTokenID(ctx context.Context, tokenID string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.email, a.admin, a.created_at, a.updated_at
		FROM accounts a
		JOIN tokens t ON t.account_id = a.id
		WHERE t.id = ?`, tokenID)
	return scanAccount(row)
}

func (r *accountsRepo) ListAccountIDsWithTokens(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT account_id FROM tokens ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a                domain.Account
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.Admin, &created, &updated); err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}
