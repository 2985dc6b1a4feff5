package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration file.
type Config struct {
	Addr      string        `yaml:"addr"`
	Token     string        `yaml:"token"`
	SrcDir    string        `yaml:"src_dir"`
	Throttle  time.Duration `yaml:"throttle"`
	Insecure  bool          `yaml:"insecure"`
	Plaintext bool          `yaml:"plaintext"`
	CACert    string        `yaml:"cacert"`
}

const configTemplate = `# botscripts CLI configuration
addr: localhost:8443
# get a token in game with: .bot ai get token
token: ""
src_dir: src
throttle: 500ms
insecure: false
plaintext: false
cacert: ""
`

// ConfigDir honours XDG_CONFIG_HOME.
func ConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "botscripts")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "botscripts")
}

func DefaultConfigPath() string { return filepath.Join(ConfigDir(), "config.yaml") }

// LoadConfig reads path and fills defaults. A missing file yields an error
// matching fs.ErrNotExist.
func LoadConfig(path string) (Config, error) {
	cfg := Config{Addr: "localhost:8443", SrcDir: "src", Throttle: DefaultThrottle}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.SrcDir == "" {
		cfg.SrcDir = "src"
	}
	return cfg, nil
}

// WriteConfigTemplate creates a commented starter config at path; it never overwrites.
func WriteConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(configTemplate); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Validate reports settings the CLI cannot work without.
func (c Config) Validate() error {
	var problems []error
	if c.Addr == "" {
		problems = append(problems, errors.New("addr is empty"))
	}
	if c.Token == "" {
		problems = append(problems, errors.New("token is empty (get one in game with .bot ai get token)"))
	}
	return errors.Join(problems...)
}

func (c Config) DialOptions() DialOptions {
	return DialOptions{
		Addr:      c.Addr,
		Token:     c.Token,
		CACert:    c.CACert,
		Insecure:  c.Insecure,
		Plaintext: c.Plaintext,
	}
}
