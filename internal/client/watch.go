package client

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/and161185/botscripts/internal/model"
)

// DefaultThrottle is the quiet period before a changed file is uploaded.
const DefaultThrottle = 500 * time.Millisecond

// Change is one deployed watcher action.
type Change struct {
	Name    string
	Deleted bool
	Err     error
}

// Watcher deploys tree changes as they happen: writes become partial syncs of
// the changed file, removals and renames-away become deletes (of every script
// under it, for a directory). Bursts of writes to one file collapse into a
// single upload after the throttle period.
type Watcher struct {
	tree     Tree
	sync     Syncer
	throttle time.Duration
	log      *zap.Logger
	onChange func(Change)

	ready chan struct{}
	dirs  map[string]struct{} // watched directories; Run goroutine only

	mu      sync.Mutex
	pending map[string]*time.Timer
	known   map[string]struct{} // script names present locally
	wg      sync.WaitGroup
}

// NewWatcher builds a watcher; onChange may be nil.
func NewWatcher(t Tree, s Syncer, throttle time.Duration, log *zap.Logger, onChange func(Change)) *Watcher {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	if log == nil {
		log = zap.NewNop()
	}
	if onChange == nil {
		onChange = func(Change) {}
	}
	return &Watcher{
		tree:     t,
		sync:     s,
		throttle: throttle,
		log:      log,
		onChange: onChange,
		ready:    make(chan struct{}),
		dirs:     make(map[string]struct{}),
		pending:  make(map[string]*time.Timer),
		known:    make(map[string]struct{}),
	}
}

// Ready is closed once the tree is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is done. Uploads still waiting for their throttle are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addDirs(fw, w.tree.Dir); err != nil {
		return err
	}
	close(w.ready)
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// addDirs watches root and its non-hidden subdirectories; fsnotify is not
// recursive. Scripts found on the way are remembered for directory removal.
// fw may be nil to only record the tree.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if name, ok := w.tree.NameFromPath(p); ok {
				w.mu.Lock()
				w.known[name] = struct{}{}
				w.mu.Unlock()
			}
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		w.dirs[filepath.Clean(p)] = struct{}{}
		if fw == nil {
			return nil
		}
		return fw.Add(p)
	})
}

func (w *Watcher) handle(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) && fw != nil {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addNewDir(ctx, fw, ev.Name)
			return
		}
	}
	gone := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	if _, ok := w.dirs[filepath.Clean(ev.Name)]; ok && gone {
		w.removeDir(ctx, filepath.Clean(ev.Name))
		return
	}
	name, ok := w.tree.NameFromPath(ev.Name)
	if !ok {
		return
	}
	switch {
	case gone:
		w.cancel(name)
		w.mu.Lock()
		delete(w.known, name)
		w.mu.Unlock()
		w.remove(ctx, name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.schedule(ctx, ev.Name, name)
	}
}

// addNewDir watches a directory created after start and uploads scripts that
// landed in it before the watch was in place.
func (w *Watcher) addNewDir(ctx context.Context, fw *fsnotify.Watcher, dir string) {
	if err := w.addDirs(fw, dir); err != nil {
		w.log.Warn("watch dir", zap.String("dir", dir), zap.Error(err))
		return
	}
	sub := Tree{Dir: dir}
	paths, _ := sub.Paths()
	for _, p := range paths {
		if name, ok := w.tree.NameFromPath(p); ok {
			w.schedule(ctx, p, name)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok && t.Stop() {
		w.wg.Done()
	}
	w.known[name] = struct{}{}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.throttle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[name] == t {
			delete(w.pending, name)
		}
		w.mu.Unlock()
		w.upload(ctx, path, name)
	})
	w.pending[name] = t
}

func (w *Watcher) cancel(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[name]; ok {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for name, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) upload(ctx context.Context, path, name string) {
	s, err := w.tree.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err == nil {
		err = w.sync.Sync(ctx, model.ScriptSet{s}, model.SyncPartial)
	}
	if err != nil {
		w.log.Warn("upload failed", zap.String("script", name), zap.Error(err))
	} else {
		w.log.Debug("uploaded", zap.String("script", name), zap.Int("bytes", len(s.Body)))
	}
	w.onChange(Change{Name: name, Err: err})
}

func (w *Watcher) remove(ctx context.Context, name string) {
	err := w.sync.Delete(ctx, []string{name})
	if err != nil {
		w.log.Warn("delete failed", zap.String("script", name), zap.Error(err))
	}
	w.onChange(Change{Name: name, Deleted: true, Err: err})
}

// removeDir deletes, in one call, every known script under a directory that was
// removed or renamed away, and stops watching its subtree.
func (w *Watcher) removeDir(ctx context.Context, dir string) {
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, dir+string(filepath.Separator)) {
			delete(w.dirs, d)
		}
	}
	rel, err := filepath.Rel(w.tree.Dir, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		w.log.Warn("watched root is gone", zap.String("dir", dir))
		return
	}
	prefix := strings.ReplaceAll(filepath.ToSlash(rel), "/", ".") + "."

	var names []string
	w.mu.Lock()
	for n := range w.known {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	w.mu.Unlock()
	if len(names) == 0 {
		return
	}
	sort.Strings(names)
	for _, n := range names {
		w.cancel(n)
	}

	err = w.sync.Delete(ctx, names)
	if err != nil {
		w.log.Warn("delete failed", zap.String("dir", dir), zap.Strings("scripts", names), zap.Error(err))
	} else {
		w.mu.Lock()
		for _, n := range names {
			delete(w.known, n)
		}
		w.mu.Unlock()
	}
	for _, n := range names {
		w.onChange(Change{Name: n, Deleted: true, Err: err})
	}
}
