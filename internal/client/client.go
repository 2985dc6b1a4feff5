// Package client is the developer-side library behind the CLI: a gRPC client for
// the Scripts service, the local script tree, and the deploy/pull/watch flows.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/and161185/botscripts/internal/api"
	"github.com/and161185/botscripts/internal/convert"
	"github.com/and161185/botscripts/internal/model"
	"github.com/and161185/botscripts/internal/rpc"
)

// Syncer uploads and deletes scripts of the token's account.
type Syncer interface {
	Sync(ctx context.Context, set model.ScriptSet, mode model.SyncMode) error
	Delete(ctx context.Context, names []string) error
}

// DialOptions selects the server and transport security.
type DialOptions struct {
	Addr      string
	Token     string
	CACert    string // PEM bundle; empty uses system roots
	Insecure  bool   // TLS without certificate verification
	Plaintext bool   // no TLS, for servers started with --dev
}

// Client talks to the Scripts service with the configured bearer token.
type Client struct {
	cc    *grpc.ClientConn
	rpc   *rpc.ScriptsClient
	token string
}

var _ Syncer = (*Client)(nil)

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // explicit --insecure
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// Dial creates a client. The connection is established lazily on first call.
func Dial(o DialOptions, extra ...grpc.DialOption) (*Client, error) {
	if o.Addr == "" {
		return nil, errors.New("empty server address")
	}
	var creds credentials.TransportCredentials
	if o.Plaintext {
		creds = insecure.NewCredentials()
	} else {
		c, err := loadTLS(o.CACert, o.Insecure)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		creds = c
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if o.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: o.Token, secure: !o.Plaintext}))
	}
	opts = append(opts, extra...)

	cc, err := grpc.NewClient(o.Addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, rpc: rpc.NewScriptsClient(cc), token: o.Token}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

// Status validates the client's own token.
func (c *Client) Status(ctx context.Context) (model.Token, error) {
	out, err := c.rpc.TokenStatus(ctx, &api.TokenStatusRequest{Token: c.token})
	if err != nil {
		return model.Token{}, err
	}
	return convert.FromAPIToken(*out), nil
}

// Scripts downloads every script of the account.
func (c *Client) Scripts(ctx context.Context) (model.ScriptSet, error) {
	out, err := c.rpc.GetScripts(ctx, &api.GetScriptsRequest{})
	if err != nil {
		return nil, err
	}
	return convert.FromAPIScripts(out.Scripts), nil
}

func (c *Client) Sync(ctx context.Context, set model.ScriptSet, mode model.SyncMode) error {
	_, err := c.rpc.SyncScripts(ctx, convert.SyncRequest(set, mode))
	return err
}

func (c *Client) Delete(ctx context.Context, names []string) error {
	_, err := c.rpc.DeleteScripts(ctx, &api.DeleteScriptsRequest{ScriptNames: names})
	return err
}
