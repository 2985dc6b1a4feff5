package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/metrics"
	"github.com/and161185/botscripts/internal/model"
	"github.com/and161185/botscripts/internal/repository"
)

// ScriptService reconciles per-account script sets.
type ScriptService interface {
	// GetScripts returns every script of the account ordered by name.
	GetScripts(ctx context.Context, accountID int64) (model.ScriptSet, error)
	// ApplySync replaces (SyncFull) or upserts into (SyncPartial) the account's set atomically.
	ApplySync(ctx context.Context, accountID int64, incoming model.ScriptSet, mode model.SyncMode) error
	// DeleteScripts removes the named scripts; unknown names are ignored.
	DeleteScripts(ctx context.Context, accountID int64, names []string) error
}

type ScriptServiceImpl struct {
	repo     repository.ScriptRepository
	maxBatch int
}

// NewScriptService constructs ScriptService with batch limits.
func NewScriptService(repo repository.ScriptRepository, maxBatch int) *ScriptServiceImpl {
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	return &ScriptServiceImpl{repo: repo, maxBatch: maxBatch}
}

func (s *ScriptServiceImpl) GetScripts(ctx context.Context, accountID int64) (model.ScriptSet, error) {
	if accountID <= 0 {
		return nil, invalid("non-positive account id %d", accountID)
	}
	out, err := s.repo.List(ctx, accountID)
	if err != nil {
		return nil, storageErr(err)
	}
	if out == nil {
		out = model.ScriptSet{}
	}
	return out, nil
}

// ApplySync validates input and delegates one atomic write to the repository.
// Validation rules:
// - accountID > 0
// - mode is SyncFull or SyncPartial
// - len(incoming) <= maxBatch
// - every name is non-blank
//
// Each script is stamped with accountID regardless of what it carried. When a
// name repeats, the last occurrence wins. A partial sync with nothing in it is a no-op.
func (s *ScriptServiceImpl) ApplySync(ctx context.Context, accountID int64, incoming model.ScriptSet, mode model.SyncMode) error {
	if accountID <= 0 {
		return invalid("non-positive account id %d", accountID)
	}
	if !mode.Valid() {
		return invalid("unknown sync mode %d", int(mode))
	}
	if len(incoming) > s.maxBatch {
		return invalid("batch too large (%d > %d)", len(incoming), s.maxBatch)
	}
	for i := range incoming {
		if strings.TrimSpace(incoming[i].Name) == "" {
			return invalid("script[%d] empty name", i)
		}
	}

	scripts := stamp(accountID, incoming)
	if mode == model.SyncPartial && len(scripts) == 0 {
		return nil
	}

	var err error
	if mode == model.SyncFull {
		err = s.repo.Replace(ctx, accountID, scripts)
	} else {
		err = s.repo.Upsert(ctx, accountID, scripts)
	}
	metrics.SyncOperations.WithLabelValues(mode.String(), metrics.Status(err)).Inc()
	if err != nil {
		return storageErr(err)
	}
	metrics.SyncedScripts.WithLabelValues(mode.String()).Add(float64(len(scripts)))
	return nil
}

// DeleteScripts removes scripts by name. Blank and repeated names are dropped.
func (s *ScriptServiceImpl) DeleteScripts(ctx context.Context, accountID int64, names []string) error {
	if accountID <= 0 {
		return invalid("non-positive account id %d", accountID)
	}
	if len(names) > s.maxBatch {
		return invalid("batch too large (%d > %d)", len(names), s.maxBatch)
	}
	uniq := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	if len(uniq) == 0 {
		return nil
	}

	err := s.repo.DeleteByNames(ctx, accountID, uniq)
	metrics.SyncOperations.WithLabelValues("delete", metrics.Status(err)).Inc()
	if err != nil {
		return storageErr(err)
	}
	metrics.SyncedScripts.WithLabelValues("delete").Add(float64(len(uniq)))
	return nil
}

// stamp copies incoming with AccountID forced and duplicate names collapsed
// into the position of their first occurrence, holding the last value.
func stamp(accountID int64, incoming model.ScriptSet) []model.Script {
	out := make([]model.Script, 0, len(incoming))
	idx := make(map[string]int, len(incoming))
	for _, sc := range incoming {
		sc.AccountID = accountID
		if i, ok := idx[sc.Name]; ok {
			out[i] = sc
			continue
		}
		idx[sc.Name] = len(out)
		out = append(out, sc)
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
