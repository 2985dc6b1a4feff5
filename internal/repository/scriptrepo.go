package repository

import (
	"context"

	"github.com/and161185/botscripts/internal/model"
)

// ScriptRepository stores per-account script sets. Every mutating method is
// applied as one transaction; concurrent writers to one account are last-write-wins.
type ScriptRepository interface {
	// List returns all scripts of the account; an unknown account yields an empty slice.
	List(ctx context.Context, accountID int64) ([]model.Script, error)

	// Replace deletes every script of the account and inserts scripts.
	Replace(ctx context.Context, accountID int64, scripts []model.Script) error

	// Upsert inserts scripts or overwrites rows with the same (account, name).
	Upsert(ctx context.Context, accountID int64, scripts []model.Script) error

	// DeleteByNames removes the account's scripts whose name is in names.
	DeleteByNames(ctx context.Context, accountID int64, names []string) error
}
