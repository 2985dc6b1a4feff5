package grpcserver

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/botscripts/internal/metrics"
	"github.com/and161185/botscripts/internal/rpc"
	"github.com/and161185/botscripts/internal/service"
)

// RequestIDHeader carries the request correlation id in both directions.
const RequestIDHeader = "x-request-id"

// Interceptors returns the server's unary chain in order: recovery, request id,
// logging, metrics, auth.
func Interceptors(log *zap.Logger, tokens service.TokenService) []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		RecoverUnary(log),
		RequestIDUnary(),
		LoggingUnary(log),
		MetricsUnary(),
		AuthUnary(tokens),
	}
}

// LoggingUnary returns a unary server interceptor for structured logging.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		// metadata only, no payloads
		log.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remote),
			zap.String("request_id", RequestIDFromCtx(ctx)),
		)
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// RequestIDUnary reuses an incoming x-request-id or mints a UUIDv4, and echoes it in the response header.
func RequestIDUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		var id string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 {
				id = strings.TrimSpace(v[0])
			}
		}
		if id == "" {
			u, err := uuid.NewV4()
			if err != nil {
				return nil, status.Error(codes.Internal, "request id")
			}
			id = u.String()
		}
		// fails outside a real stream (unit tests); the id is still in ctx
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))
		return next(WithRequestID(ctx, id), req)
	}
}

// MetricsUnary records request latency per method and code.
func MetricsUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		metrics.RequestDuration.
			WithLabelValues("grpc", info.FullMethod, status.Code(err).String()).
			Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// AuthUnary validates the bearer token of Scripts calls and stores the account
// in context. TokenStatus and other services (health) pass through.
func AuthUnary(tokens service.TokenService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+rpc.ServiceName+"/") || info.FullMethod == rpc.MethodTokenStatus {
			return next(ctx, req)
		}
		raw, err := bearerTokenFromMD(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "no auth")
		}
		tok, err := tokens.ValidateWithIP(ctx, raw, remoteIP(ctx))
		if err != nil {
			return nil, toStatus(err)
		}
		return next(WithAccountID(ctx, tok.AccountID), req)
	}
}
