package service

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/model"
	"github.com/and161185/botscripts/internal/repository"
)

// memScripts is an in-memory ScriptRepository; failErr aborts a write before it touches state.
type memScripts struct {
	data    map[int64]map[string]model.Script
	failErr error

	calls int
}

var _ repository.ScriptRepository = (*memScripts)(nil)

func newMem() *memScripts { return &memScripts{data: map[int64]map[string]model.Script{}} }

func (m *memScripts) List(_ context.Context, accountID int64) ([]model.Script, error) {
	m.calls++
	if m.failErr != nil {
		return nil, m.failErr
	}
	out := []model.Script{}
	for _, s := range m.data[accountID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memScripts) Replace(_ context.Context, accountID int64, scripts []model.Script) error {
	m.calls++
	if m.failErr != nil {
		return m.failErr
	}
	set := map[string]model.Script{}
	for _, s := range scripts {
		set[s.Name] = s
	}
	m.data[accountID] = set
	return nil
}

func (m *memScripts) Upsert(_ context.Context, accountID int64, scripts []model.Script) error {
	m.calls++
	if m.failErr != nil {
		return m.failErr
	}
	set := m.data[accountID]
	if set == nil {
		set = map[string]model.Script{}
		m.data[accountID] = set
	}
	for _, s := range scripts {
		set[s.Name] = s
	}
	return nil
}

func (m *memScripts) DeleteByNames(_ context.Context, accountID int64, names []string) error {
	m.calls++
	if m.failErr != nil {
		return m.failErr
	}
	for _, n := range names {
		delete(m.data[accountID], n)
	}
	return nil
}

func strp(s string) *string { return &s }

func sc(name, body string) model.Script { return model.Script{Name: name, Body: body} }

func names(t *testing.T, s ScriptService, accountID int64) []string {
	t.Helper()
	set, err := s.GetScripts(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetScripts: %v", err)
	}
	return set.Names()
}

func TestNewScriptService_DefaultMaxBatch(t *testing.T) {
	s := NewScriptService(newMem(), 0)
	if s.maxBatch != 1000 {
		t.Fatalf("default maxBatch want 1000, got %d", s.maxBatch)
	}
}

func TestScripts_FullReplaceYieldsExactSet(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)
	ctx := context.Background()

	if err := s.ApplySync(ctx, 7, model.ScriptSet{sc("A", "1"), sc("B", "2")}, model.SyncFull); err != nil {
		t.Fatalf("ApplySync: %v", err)
	}
	if err := s.ApplySync(ctx, 7, model.ScriptSet{sc("B", "3"), sc("C", "4")}, model.SyncFull); err != nil {
		t.Fatalf("ApplySync: %v", err)
	}
	if got := names(t, s, 7); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Fatalf("want [B C], got %v", got)
	}
	if repo.data[7]["B"].Body != "3" {
		t.Fatalf("B not overwritten: %+v", repo.data[7]["B"])
	}

	if err := s.ApplySync(ctx, 7, nil, model.SyncFull); err != nil {
		t.Fatalf("empty full sync: %v", err)
	}
	if got := names(t, s, 7); len(got) != 0 {
		t.Fatalf("empty full sync must clear the account, got %v", got)
	}
}

func TestScripts_PartialKeepsUntouched(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)
	ctx := context.Background()

	_ = s.ApplySync(ctx, 7, model.ScriptSet{{Name: "A", Body: "1", Data: strp("st")}, sc("B", "2")}, model.SyncFull)
	if err := s.ApplySync(ctx, 7, model.ScriptSet{sc("A", "9"), sc("D", "5")}, model.SyncPartial); err != nil {
		t.Fatalf("ApplySync: %v", err)
	}
	if got := names(t, s, 7); !reflect.DeepEqual(got, []string{"A", "B", "D"}) {
		t.Fatalf("want [A B D], got %v", got)
	}
	a := repo.data[7]["A"]
	if a.Body != "9" || a.Data != nil {
		t.Fatalf("partial upsert must replace every field, got %+v", a)
	}

	calls := repo.calls
	if err := s.ApplySync(ctx, 7, model.ScriptSet{}, model.SyncPartial); err != nil {
		t.Fatalf("empty partial: %v", err)
	}
	if repo.calls != calls {
		t.Fatalf("empty partial sync must not reach storage")
	}
}

func TestScripts_AccountIsStampedAndIsolated(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)
	ctx := context.Background()

	_ = s.ApplySync(ctx, 1, model.ScriptSet{sc("A", "x")}, model.SyncFull)
	in := model.ScriptSet{{AccountID: 1, Name: "B", Body: "y"}}
	if err := s.ApplySync(ctx, 2, in, model.SyncFull); err != nil {
		t.Fatalf("ApplySync: %v", err)
	}
	if in[0].AccountID != 1 {
		t.Fatalf("caller's slice must not be mutated")
	}
	if repo.data[2]["B"].AccountID != 2 {
		t.Fatalf("want account 2 stamped, got %+v", repo.data[2]["B"])
	}
	if got := names(t, s, 1); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("account 1 changed by account 2 sync: %v", got)
	}
}

func TestScripts_DuplicateNamesLastWins(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)

	err := s.ApplySync(context.Background(), 3, model.ScriptSet{sc("A", "1"), sc("B", "2"), sc("A", "3")}, model.SyncFull)
	if err != nil {
		t.Fatalf("ApplySync: %v", err)
	}
	if repo.data[3]["A"].Body != "3" || len(repo.data[3]) != 2 {
		t.Fatalf("want last A to win, got %+v", repo.data[3])
	}
}

func TestScripts_Idempotent(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)
	ctx := context.Background()
	set := model.ScriptSet{sc("A", "1"), sc("B", "2")}

	for _, mode := range []model.SyncMode{model.SyncFull, model.SyncPartial} {
		_ = s.ApplySync(ctx, 5, set, mode)
		first, _ := s.GetScripts(ctx, 5)
		_ = s.ApplySync(ctx, 5, set, mode)
		second, _ := s.GetScripts(ctx, 5)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s sync not idempotent: %v vs %v", mode, first, second)
		}
	}

	_ = s.DeleteScripts(ctx, 5, []string{"A"})
	if err := s.DeleteScripts(ctx, 5, []string{"A"}); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
	if got := names(t, s, 5); !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("want [B], got %v", got)
	}
}

func TestScripts_Delete(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)
	ctx := context.Background()
	_ = s.ApplySync(ctx, 9, model.ScriptSet{sc("A", ""), sc("B", ""), sc("C", "")}, model.SyncFull)

	if err := s.DeleteScripts(ctx, 9, []string{"B", "Z", "B", ""}); err != nil {
		t.Fatalf("DeleteScripts: %v", err)
	}
	if got := names(t, s, 9); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("want [A C], got %v", got)
	}

	calls := repo.calls
	if err := s.DeleteScripts(ctx, 9, []string{" "}); err != nil || repo.calls != calls {
		t.Fatalf("blank-only delete must be a no-op: err=%v", err)
	}
	if err := s.DeleteScripts(ctx, 404, []string{"A"}); err != nil {
		t.Fatalf("delete on unknown account: %v", err)
	}
}

func TestScripts_Validation(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 2)
	ctx := context.Background()

	cases := map[string]error{
		"zero account": s.ApplySync(ctx, 0, nil, model.SyncFull),
		"bad mode":     s.ApplySync(ctx, 1, nil, model.SyncMode(9)),
		"too large":    s.ApplySync(ctx, 1, model.ScriptSet{sc("A", ""), sc("B", ""), sc("C", "")}, model.SyncFull),
		"blank name":   s.ApplySync(ctx, 1, model.ScriptSet{sc(" ", "")}, model.SyncPartial),
		"delete acct":  s.DeleteScripts(ctx, -1, []string{"A"}),
		"delete batch": s.DeleteScripts(ctx, 1, []string{"A", "B", "C"}),
	}
	for name, err := range cases {
		if !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("%s: want ErrInvalidArgument, got %v", name, err)
		}
	}
	if _, err := s.GetScripts(ctx, 0); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("GetScripts: want ErrInvalidArgument, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("invalid input must not reach storage, got %d calls", repo.calls)
	}
}

func TestScripts_StorageFailureLeavesStateIntact(t *testing.T) {
	t.Parallel()
	repo := newMem()
	s := NewScriptService(repo, 10)
	ctx := context.Background()
	_ = s.ApplySync(ctx, 4, model.ScriptSet{sc("A", "1")}, model.SyncFull)

	repo.failErr = errors.New("disk full")
	if err := s.ApplySync(ctx, 4, model.ScriptSet{sc("B", "2")}, model.SyncFull); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
	if err := s.DeleteScripts(ctx, 4, []string{"A"}); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
	if _, err := s.GetScripts(ctx, 4); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
	repo.failErr = nil

	if got := names(t, s, 4); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("state changed after failed sync: %v", got)
	}
}

func TestScripts_GetScriptsEmptyIsNotNil(t *testing.T) {
	t.Parallel()
	s := NewScriptService(newMem(), 10)
	set, err := s.GetScripts(context.Background(), 123)
	if err != nil || set == nil || len(set) != 0 {
		t.Fatalf("want empty non-nil set, got %v %v", set, err)
	}
}
