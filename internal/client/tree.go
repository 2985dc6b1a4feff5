package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/and161185/botscripts/internal/model"
)

// ScriptExt is the only extension treated as a script.
const ScriptExt = ".lua"

const starterScript = `-- Entry point, run by the bot every tick.
-- Modules in this directory are available as require("<dotted.name>").

function main()
end
`

// Tree maps a directory of .lua files to script names: ai/combat.lua is "ai.combat".
type Tree struct {
	Dir string
}

// NameFromPath returns the script name of path; ok is false for non-script files
// and paths outside the tree.
func (t Tree) NameFromPath(path string) (string, bool) {
	if filepath.Ext(path) != ScriptExt {
		return "", false
	}
	rel, err := filepath.Rel(t.Dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", false
	}
	rel = strings.TrimSuffix(rel, ScriptExt)
	if rel == "" {
		return "", false
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "."), true
}

// PathFromName is the inverse of NameFromPath. Names that would escape the tree are rejected.
func (t Tree) PathFromName(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("bad script name %q", name)
	}
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("bad script name %q", name)
		}
	}
	return filepath.Join(t.Dir, filepath.Join(parts...)) + ScriptExt, nil
}

// Paths lists every script file under the tree in lexical order.
func (t Tree) Paths() ([]string, error) {
	var out []string
	err := filepath.WalkDir(t.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != t.Dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := t.NameFromPath(p); ok {
			out = append(out, p)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	sort.Strings(out)
	return out, err
}

// LoadFile reads one script file.
func (t Tree) LoadFile(path string) (model.Script, error) {
	name, ok := t.NameFromPath(path)
	if !ok {
		return model.Script{}, fmt.Errorf("%s: not a script", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Script{}, err
	}
	return model.Script{Name: name, Body: string(b)}, nil
}

// Load reads every script in the tree.
func (t Tree) Load() (model.ScriptSet, error) {
	paths, err := t.Paths()
	if err != nil {
		return nil, err
	}
	set := make(model.ScriptSet, 0, len(paths))
	for _, p := range paths {
		s, err := t.LoadFile(p)
		if err != nil {
			return nil, err
		}
		set = append(set, s)
	}
	return set, nil
}

// Write stores scripts as files. Existing files are kept unless overwrite is set.
func (t Tree) Write(set model.ScriptSet, overwrite bool) (written, skipped []string, err error) {
	for _, s := range set {
		p, err := t.PathFromName(s.Name)
		if err != nil {
			return written, skipped, err
		}
		if !overwrite {
			if _, err := os.Stat(p); err == nil {
				skipped = append(skipped, s.Name)
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return written, skipped, err
		}
		if err := os.WriteFile(p, []byte(s.Body), 0o644); err != nil {
			return written, skipped, err
		}
		written = append(written, s.Name)
	}
	return written, skipped, nil
}

// Init writes a starter main.lua when the tree has no scripts. It reports whether it did.
func (t Tree) Init() (bool, error) {
	paths, err := t.Paths()
	if err != nil {
		return false, err
	}
	if len(paths) > 0 {
		return false, nil
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return false, err
	}
	return true, os.WriteFile(filepath.Join(t.Dir, "main"+ScriptExt), []byte(starterScript), 0o644)
}
