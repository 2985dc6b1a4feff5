// Command botscripts is the developer CLI: it deploys a local tree of bot
// scripts to the server, pulls them back and watches the tree for changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/and161185/botscripts/internal/client"
	"github.com/and161185/botscripts/internal/model"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// rpcTimeout bounds every one-shot command.
const rpcTimeout = 30 * time.Second

// remote is what commands need from a server connection.
type remote interface {
	client.Syncer
	client.Source
	Status(ctx context.Context) (model.Token, error)
	Close() error
}

type rootOptions struct {
	configPath string
	addr       string
	token      string
	srcDir     string
	caCert     string
	insecure   bool
	plaintext  bool
	verbose    bool

	dial dialFunc
}

type dialFunc func(client.DialOptions) (remote, error)

func dialServer(o client.DialOptions) (remote, error) { return client.Dial(o) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand(dialServer).ExecuteContext(ctx)
	stop()
	if err != nil {
		fail(err)
	}
}

func newRootCommand(dial dialFunc) *cobra.Command {
	opts := &rootOptions{dial: dial}
	cmd := &cobra.Command{
		Use:           "botscripts",
		Short:         "Deploy and sync bot scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default "+client.DefaultConfigPath()+")")
	pf.StringVar(&opts.addr, "addr", "", "server address host:port")
	pf.StringVar(&opts.token, "token", "", "account token")
	pf.StringVar(&opts.srcDir, "src-dir", "", "local scripts directory")
	pf.StringVar(&opts.caCert, "cacert", "", "CA certificate (PEM) to verify the server")
	pf.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	pf.BoolVar(&opts.plaintext, "plaintext", false, "connect without TLS")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newStatusCommand(opts),
		newPullCommand(opts),
		newDeployCommand(opts),
		newWatchCommand(opts),
		newRmCommand(opts),
		newInitCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// errConfigCreated tells the user to fill in a freshly written config file.
type errConfigCreated struct{ path string }

func (e errConfigCreated) Error() string {
	return fmt.Sprintf("created config template at %s; set your token (in game: .bot ai get token) and run again", e.path)
}

func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return client.DefaultConfigPath()
}

// config loads the config file and applies flags explicitly set on cmd.
// A missing file is replaced by a template unless flags supply the token.
func (o *rootOptions) config(cmd *cobra.Command) (client.Config, error) {
	path := o.path()
	cfg, err := client.LoadConfig(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		if o.token == "" {
			if werr := client.WriteConfigTemplate(path); werr != nil {
				return cfg, fmt.Errorf("write config template: %w", werr)
			}
			return cfg, errConfigCreated{path: path}
		}
	default:
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = o.addr
	}
	if f.Changed("token") {
		cfg.Token = o.token
	}
	if f.Changed("src-dir") {
		cfg.SrcDir = o.srcDir
	}
	if f.Changed("cacert") {
		cfg.CACert = o.caCert
	}
	if f.Changed("insecure") {
		cfg.Insecure = o.insecure
	}
	if f.Changed("plaintext") {
		cfg.Plaintext = o.plaintext
	}
	return cfg, cfg.Validate()
}

// connect resolves the config and dials the server.
func (o *rootOptions) connect(cmd *cobra.Command) (client.Config, remote, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return cfg, nil, err
	}
	r, err := o.dial(cfg.DialOptions())
	if err != nil {
		return cfg, nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	return cfg, r, nil
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// fail prints err, unwrapping gRPC status details, and exits.
func fail(err error) {
	fmt.Fprintln(os.Stderr, errMessage(err))
	os.Exit(1)
}

func errMessage(err error) string {
	if s, ok := status.FromError(err); ok {
		return fmt.Sprintf("rpc error: code=%s msg=%s", s.Code(), s.Message())
	}
	return err.Error()
}
