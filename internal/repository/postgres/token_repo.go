package postgres

import (
	"context"
	"errors"

	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/model"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// GetByValue selects a token by its canonical value.
func (r *TokenRepo) GetByValue(ctx context.Context, value string) (*model.Token, error) {
	const q = `SELECT accountid, token, age FROM playerbot_tokens WHERE token=$1`
	var t model.Token
	if err := r.db.Pool.QueryRow(ctx, q, value).Scan(&t.AccountID, &t.Value, &t.IssuedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
