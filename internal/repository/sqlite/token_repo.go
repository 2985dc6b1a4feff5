package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/model"
)

// TokenRepo implements TokenRepository using SQLite.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// GetByValue selects a token by its canonical value.
func (r *TokenRepo) GetByValue(ctx context.Context, value string) (*model.Token, error) {
	const q = `SELECT accountid, token, age FROM playerbot_tokens WHERE token = ?`
	var t model.Token
	if err := r.db.conn.QueryRowContext(ctx, q, value).Scan(&t.AccountID, &t.Value, &t.IssuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
