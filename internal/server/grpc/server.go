// Package grpcserver exposes the botscripts gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/botscripts/internal/api"
	"github.com/and161185/botscripts/internal/convert"
	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/model"
	"github.com/and161185/botscripts/internal/rpc"
	"github.com/and161185/botscripts/internal/service"
)

// Server wires services into gRPC handlers. Script methods expect AuthUnary
// to have put the caller's account into the context.
type Server struct {
	tokens  service.TokenService
	scripts service.ScriptService
}

var _ rpc.ScriptsServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(tokens service.TokenService, scripts service.ScriptService) *Server {
	return &Server{tokens: tokens, scripts: scripts}
}

// TokenStatus validates the token from the request body and returns it with its account.
func (s *Server) TokenStatus(ctx context.Context, req *api.TokenStatusRequest) (*api.Token, error) {
	tok, err := s.tokens.ValidateWithIP(ctx, req.Token, remoteIP(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	out := convert.ToAPIToken(tok)
	return &out, nil
}

// GetScripts returns every script of the caller's account.
func (s *Server) GetScripts(ctx context.Context, _ *api.GetScriptsRequest) (*api.GetScriptsResponse, error) {
	accountID, ok := AccountIDFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	set, err := s.scripts.GetScripts(ctx, accountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetScriptsResponse{Scripts: convert.ToAPIScripts(set)}, nil
}

// SyncScripts replaces or upserts the caller's scripts. Any account id in the
// payload is ignored.
func (s *Server) SyncScripts(ctx context.Context, req *api.SyncScriptsRequest) (*api.Empty, error) {
	accountID, ok := AccountIDFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	mode := model.SyncModeFromComplete(req.Complete())
	if err := s.scripts.ApplySync(ctx, accountID, convert.FromAPIScripts(req.Scripts), mode); err != nil {
		return nil, toStatus(err)
	}
	return &api.Empty{}, nil
}

// DeleteScripts removes the caller's scripts by name.
func (s *Server) DeleteScripts(ctx context.Context, req *api.DeleteScriptsRequest) (*api.Empty, error) {
	accountID, ok := AccountIDFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	if err := s.scripts.DeleteScripts(ctx, accountID, req.ScriptNames); err != nil {
		return nil, toStatus(err)
	}
	return &api.Empty{}, nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "not authenticated")
	case errors.Is(err, errs.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Errorf(codes.Internal, "internal: %v", err)
	}
}

// remoteIP returns the peer host without port so reconnects share a limiter key.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
