package postgres

import (
	"context"

	"github.com/and161185/botscripts/internal/model"
	"github.com/jackc/pgx/v5"
)

const (
	insertScriptSQL = `INSERT INTO playerbot_scripts (accountid, name, script, data) VALUES ($1,$2,$3,$4)`
	upsertScriptSQL = insertScriptSQL + `
ON CONFLICT (accountid, name) DO UPDATE SET script=EXCLUDED.script, data=EXCLUDED.data`

	// lockAccountSQL serializes full replaces of one account until commit.
	lockAccountSQL = `SELECT pg_advisory_xact_lock($1)`
)

// ScriptRepo implements ScriptRepository using PostgreSQL.
type ScriptRepo struct{ db *DB }

// NewScriptRepo constructs a script repository.
func NewScriptRepo(db *DB) *ScriptRepo { return &ScriptRepo{db: db} }

// List returns all scripts of an account ordered by name.
func (r *ScriptRepo) List(ctx context.Context, accountID int64) ([]model.Script, error) {
	const q = `
SELECT accountid, name, script, data
FROM playerbot_scripts
WHERE accountid=$1
ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Script{}
	for rows.Next() {
		var s model.Script
		if err = rows.Scan(&s.AccountID, &s.Name, &s.Body, &s.Data); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Replace deletes the account's scripts and writes the given ones in one transaction.
// Concurrent replaces of the same account queue on an advisory lock, and rows a
// concurrent Upsert committed after the DELETE are overwritten, so the last
// writer wins instead of failing on the primary key.
func (r *ScriptRepo) Replace(ctx context.Context, accountID int64, scripts []model.Script) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockAccountSQL, accountID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM playerbot_scripts WHERE accountid=$1`, accountID); err != nil {
			return err
		}
		return execEach(ctx, tx, upsertScriptSQL, accountID, scripts)
	})
}

// Upsert inserts scripts or overwrites existing (accountid, name) rows in one transaction.
func (r *ScriptRepo) Upsert(ctx context.Context, accountID int64, scripts []model.Script) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		return execEach(ctx, tx, upsertScriptSQL, accountID, scripts)
	})
}

// DeleteByNames removes the named scripts of an account; unknown names are ignored.
func (r *ScriptRepo) DeleteByNames(ctx context.Context, accountID int64, names []string) error {
	const q = `DELETE FROM playerbot_scripts WHERE accountid=$1 AND name = ANY($2)`
	_, err := r.db.Pool.Exec(ctx, q, accountID, names)
	return err
}

func execEach(ctx context.Context, tx pgx.Tx, q string, accountID int64, scripts []model.Script) error {
	for _, s := range scripts {
		if _, err := tx.Exec(ctx, q, accountID, s.Name, s.Body, s.Data); err != nil {
			return err
		}
	}
	return nil
}
