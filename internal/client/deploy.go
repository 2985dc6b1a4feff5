package client

import (
	"context"
	"fmt"

	"github.com/and161185/botscripts/internal/model"
)

// Source downloads the account's scripts.
type Source interface {
	Scripts(ctx context.Context) (model.ScriptSet, error)
}

// Deploy uploads the whole tree as a full sync; scripts missing locally are
// removed on the server. It returns the uploaded set.
func Deploy(ctx context.Context, s Syncer, t Tree) (model.ScriptSet, error) {
	set, err := t.Load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.Dir, err)
	}
	if err := s.Sync(ctx, set, model.SyncFull); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	return set, nil
}

// Pull writes the server's scripts into the tree.
func Pull(ctx context.Context, src Source, t Tree, overwrite bool) (written, skipped []string, err error) {
	set, err := src.Scripts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pull: %w", err)
	}
	return t.Write(set, overwrite)
}
