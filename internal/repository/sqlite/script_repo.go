package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/and161185/botscripts/internal/model"
)

const (
	insertScriptSQL = `INSERT INTO playerbot_scripts (accountid, name, script, data) VALUES (?, ?, ?, ?)`
	upsertScriptSQL = insertScriptSQL + `
ON CONFLICT (accountid, name) DO UPDATE SET script = excluded.script, data = excluded.data`
)

// ScriptRepo implements ScriptRepository using SQLite.
type ScriptRepo struct{ db *DB }

// NewScriptRepo constructs a script repository.
func NewScriptRepo(db *DB) *ScriptRepo { return &ScriptRepo{db: db} }

// List returns all scripts of an account ordered by name.
func (r *ScriptRepo) List(ctx context.Context, accountID int64) ([]model.Script, error) {
	const q = `
SELECT accountid, name, script, data
FROM playerbot_scripts
WHERE accountid = ?
ORDER BY name ASC`
	rows, err := r.db.conn.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Script{}
	for rows.Next() {
		var (
			s    model.Script
			data sql.NullString
		)
		if err := rows.Scan(&s.AccountID, &s.Name, &s.Body, &data); err != nil {
			return nil, err
		}
		if data.Valid {
			s.Data = &data.String
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Replace deletes the account's scripts and inserts the given ones in one transaction.
func (r *ScriptRepo) Replace(ctx context.Context, accountID int64, scripts []model.Script) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM playerbot_scripts WHERE accountid = ?`, accountID); err != nil {
			return err
		}
		return execEach(ctx, tx, insertScriptSQL, accountID, scripts)
	})
}

// Upsert inserts scripts or overwrites existing (accountid, name) rows in one transaction.
func (r *ScriptRepo) Upsert(ctx context.Context, accountID int64, scripts []model.Script) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		return execEach(ctx, tx, upsertScriptSQL, accountID, scripts)
	})
}

// DeleteByNames removes the named scripts of an account; unknown names are ignored.
func (r *ScriptRepo) DeleteByNames(ctx context.Context, accountID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	args := make([]any, 0, len(names)+1)
	args = append(args, accountID)
	for _, n := range names {
		args = append(args, n)
	}
	q := `DELETE FROM playerbot_scripts WHERE accountid = ? AND name IN (?` +
		strings.Repeat(", ?", len(names)-1) + `)`
	_, err := r.db.conn.ExecContext(ctx, q, args...)
	return err
}

func execEach(ctx context.Context, tx *sql.Tx, q string, accountID int64, scripts []model.Script) error {
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range scripts {
		if _, err := stmt.ExecContext(ctx, accountID, s.Name, s.Body, nullable(s.Data)); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
