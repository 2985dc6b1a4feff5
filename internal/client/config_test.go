package client

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.Equal(t, filepath.Join(dir, "botscripts"), ConfigDir())
	require.Equal(t, filepath.Join(dir, "botscripts", "config.yaml"), DefaultConfigPath())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := LoadConfig(path)
	require.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, WriteConfigTemplate(path))
	require.Error(t, WriteConfigTemplate(path), "template never overwrites")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "localhost:8443", cfg.Addr)
	require.Equal(t, "src", cfg.SrcDir)
	require.Equal(t, 500*time.Millisecond, cfg.Throttle)
	require.ErrorContains(t, cfg.Validate(), "token")

	require.NoError(t, os.WriteFile(path, []byte("addr: example:1\ntoken: abc\nthrottle: 2s\nplaintext: true\n"), 0o600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, 2*time.Second, cfg.Throttle)
	require.Equal(t, DialOptions{Addr: "example:1", Token: "abc", Plaintext: true}, cfg.DialOptions())

	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
