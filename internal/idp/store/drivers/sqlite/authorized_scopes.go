package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
)

type authorizedScopesRepo struct {
	db dbtx
}

const (
	entryScope = "scope"
	entryClaim = "claim"
)

func (r *authorizedScopesRepo) GetAuthorizedScopes(
	ctx context.Context,
	accountID, clientID string,
) (domain.AuthorizedScopes, error) {
	var updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_at FROM authorized_scopes WHERE account_id = ? AND client_id = ?`,
		accountID, clientID,
	).Scan(&updated)
	if err != nil {
		return domain.AuthorizedScopes{}, mapNotFound(err)
	}

	as := domain.AuthorizedScopes{
		AccountID: accountID,
		ClientID:  clientID,
		UpdatedAt: fromMillis(updated),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, name FROM authorized_scope_entries
		WHERE account_id = ? AND client_id = ?
		ORDER BY kind, name`,
		accountID, clientID,
	)
	if err != nil {
		return domain.AuthorizedScopes{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return domain.AuthorizedScopes{}, err
		}
		if kind == entryScope {
			as.ScopeIDs = append(as.ScopeIDs, name)
		} else {
			as.ClaimNames = append(as.ClaimNames, name)
		}
	}
	return as, rows.Err()
}

func (r *authorizedScopesRepo) AddAuthorizedScopes(
	ctx context.Context,
	accountID, clientID string,
	scopeIDs, claimNames []string,
	now time.Time,
) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorized_scopes (account_id, client_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (account_id, client_id) DO UPDATE SET updated_at = excluded.updated_at`,
		accountID, clientID, toMillis(now),
	)
	if err != nil {
		return mapConstraint(err)
	}

	add := func(kind string, names []string) error {
		for _, name := range names {
			if _, err := r.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO authorized_scope_entries (account_id, client_id, kind, name)
				VALUES (?, ?, ?, ?)`,
				accountID, clientID, kind, name,
			); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add(entryScope, scopeIDs); err != nil {
		return err
	}
	return add(entryClaim, claimNames)
}

func (r *authorizedScopesRepo) DeleteAuthorizedScopes(ctx context.Context, accountID, clientID string) (bool, error) {
	n, err := rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM authorized_scopes WHERE account_id = ? AND client_id = ?`, accountID, clientID))
	return n > 0, err
}

func (r *authorizedScopesRepo) DeleteAuthorizedScopesForClient(ctx context.Context, clientID string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM authorized_scopes WHERE client_id = ?`, clientID))
}

func (r *authorizedScopesRepo) RemoveScopesFromAll(ctx context.Context, scopeIDs []string) (int64, error) {
	if len(scopeIDs) == 0 {
		return 0, nil
	}
	in := placeholders(len(scopeIDs))

	var changed int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT account_id, client_id FROM authorized_scope_entries
			WHERE kind = ? AND name IN (`+in+`)
		)`,
		stringArgs([]any{entryScope}, scopeIDs)...,
	).Scan(&changed)
	if err != nil {
		return 0, err
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM authorized_scope_entries WHERE kind = ? AND name IN (`+in+`)`,
		stringArgs([]any{entryScope}, scopeIDs)...,
	); err != nil {
		return 0, err
	}
	return changed, nil
}

var _ store.AuthorizedScopes = (*authorizedScopesRepo)(nil)
