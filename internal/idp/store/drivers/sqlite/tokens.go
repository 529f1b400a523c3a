package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type tokensRepo struct {
	db dbtx
}

const tokenColumns = `id, account_id, kind, created_at, ttl_ms, hash, salt, payload`

// CreateToken inserts the token row and its lineage together. Outside a
// transaction it opens one of its own.
func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	if t.Payload == nil {
		return errors.New("sqlite: token without payload")
	}
	clientID, payload, err := encodePayload(t.Payload)
	if err != nil {
		return err
	}

	db, ok := r.db.(*sql.DB)
	if !ok {
		return insertToken(ctx, r.db, t, clientID, payload)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()
	if err := insertToken(ctx, tx, t, clientID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

func insertToken(ctx context.Context, db dbtx, t domain.Token, clientID, payload string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tokens (id, account_id, kind, client_id, created_at, ttl_ms, expires_at, hash, salt, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, string(t.Kind()), clientID,
		toMillis(t.CreatedAt), t.TTL.Milliseconds(), toMillis(t.ExpiresAt()),
		t.Hash, t.Salt, payload,
	)
	if err != nil {
		return mapConstraint(err)
	}

	for i, ancestor := range t.AncestorIDs {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO token_ancestors (token_id, ancestor_id, position) VALUES (?, ?, ?)`,
			t.ID, ancestor, i,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *tokensRepo) GetToken(ctx context.Context, id string) (domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = ?`, id)
	t, err := scanToken(row)
	if err != nil {
		return domain.Token{}, err
	}

	ancestors, err := r.ancestors(ctx, `WHERE token_id = ?`, id)
	if err != nil {
		return domain.Token{}, err
	}
	t.AncestorIDs = ancestors[id]
	return t, nil
}

func (r *tokensRepo) ListAccountTokens(ctx context.Context, accountID string) ([]domain.Token, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE account_id = ? ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ancestors, err := r.ancestors(ctx,
		`WHERE token_id IN (SELECT id FROM tokens WHERE account_id = ?)`, accountID)
	if err != nil {
		return nil, err
	}
	for i := range tokens {
		tokens[i].AncestorIDs = ancestors[tokens[i].ID]
	}
	return tokens, nil
}

func (r *tokensRepo) HasToken(ctx context.Context, accountID, tokenID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM tokens WHERE id = ? AND account_id = ?`, tokenID, accountID,
	).Scan(&n)
	return n > 0, err
}

func (r *tokensRepo) DeleteTokens(ctx context.Context, accountID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE account_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		stringArgs([]any{accountID}, ids)...,
	))
}

func (r *tokensRepo) RevokeToken(ctx context.Context, id string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE id = ?
		   OR id IN (SELECT token_id FROM token_ancestors WHERE ancestor_id = ?)`,
		id, id,
	))
}

func (r *tokensRepo) RevokeDescendants(ctx context.Context, ancestorID string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE id IN (SELECT token_id FROM token_ancestors WHERE ancestor_id = ?)`,
		ancestorID,
	))
}

func (r *tokensRepo) RevokeTokensForAccount(
	ctx context.Context,
	accountID string,
	kind domain.TokenKind,
) (int64, error) {
	if kind == "" {
		return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM tokens WHERE account_id = ?`, accountID))
	}
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE account_id = ? AND kind = ?`, accountID, string(kind)))
}

func (r *tokensRepo) RevokeTokensForClient(ctx context.Context, clientID string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM tokens WHERE client_id = ?`, clientID))
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, toMillis(now)))
}

// ancestors loads token_ancestors rows matching where, grouped by token id in
// lineage order.
func (r *tokensRepo) ancestors(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT token_id, ancestor_id FROM token_ancestors `+where+` ORDER BY token_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var tokenID, ancestorID string
		if err := rows.Scan(&tokenID, &ancestorID); err != nil {
			return nil, err
		}
		out[tokenID] = append(out[tokenID], ancestorID)
	}
	return out, rows.Err()
}

func scanToken(row rowScanner) (domain.Token, error) {
	var (
		t       domain.Token
		kind    string
		created int64
		ttlMS   int64
		payload string
	)
	if err := row.Scan(&t.ID, &t.AccountID, &kind, &created, &ttlMS, &t.Hash, &t.Salt, &payload); err != nil {
		return domain.Token{}, mapNotFound(err)
	}

	p, err := decodePayload(domain.TokenKind(kind), payload)
	if err != nil {
		return domain.Token{}, err
	}

	t.CreatedAt = fromMillis(created)
	t.TTL = time.Duration(ttlMS) * time.Millisecond
	t.Payload = p
	return t, nil
}
