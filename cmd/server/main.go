// Command botscripts-server serves bot scripts over gRPC and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/botscripts/internal/config"
	"github.com/and161185/botscripts/internal/limiter"
	"github.com/and161185/botscripts/internal/migrate"
	"github.com/and161185/botscripts/internal/repository"
	"github.com/and161185/botscripts/internal/repository/postgres"
	"github.com/and161185/botscripts/internal/repository/sqlite"
	"github.com/and161185/botscripts/internal/rpc"
	grpcserver "github.com/and161185/botscripts/internal/server/grpc"
	httpserver "github.com/and161185/botscripts/internal/server/http"
	"github.com/and161185/botscripts/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "botscripts-server",
		Short:         "Serve bot scripts to game clients",
		Version:       version + " (" + buildDate + ")",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Dev)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// store is the storage backend selected by db.driver.
type store struct {
	tokens  repository.TokenRepository
	scripts repository.ScriptRepository
	lim     limiter.Limiter
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	lc := cfg.Limiter
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		if err := migrate.Up(ctx, cfg.DB.DSN); err != nil {
			return nil, err
		}
		db, err := postgres.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &store{
			tokens:  postgres.NewTokenRepo(db),
			scripts: postgres.NewScriptRepo(db),
			lim:     limiter.NewPG(db.Pool, lc.Window, lc.MaxFails, lc.BlockFor),
			close:   db.Close,
		}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		return &store{
			tokens:  sqlite.NewTokenRepo(db),
			scripts: sqlite.NewScriptRepo(db),
			lim:     limiter.NewMemory(lc.Window, lc.MaxFails, lc.BlockFor),
			close:   func() { _ = db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("driver", cfg.DB.Driver),
		zap.String("grpc", cfg.GRPC.Addr),
		zap.String("http", cfg.HTTP.Addr),
	)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	tokenSvc := service.NewTokenService(st.tokens, st.lim)
	scriptSvc := service.NewScriptService(st.scripts, cfg.Sync.MaxBatch)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpcserver.Interceptors(log, tokenSvc)...),
	}
	if cfg.Dev {
		log.Warn("dev mode: gRPC without TLS")
	} else {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLS.Cert, cfg.TLS.Key)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	gs := grpc.NewServer(opts...)
	rpc.RegisterScriptsServer(gs, grpcserver.New(tokenSvc, scriptSvc))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if cfg.Dev {
		reflection.Register(gs)
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc listening", zap.String("addr", cfg.GRPC.Addr), zap.Bool("tls", !cfg.Dev))
		errCh <- gs.Serve(lis)
	}()

	var hsrv *http.Server
	if cfg.HTTP.Addr != "" {
		if !cfg.Dev {
			gin.SetMode(gin.ReleaseMode)
		}
		hsrv = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpserver.NewRouter(tokenSvc, scriptSvc, log, httpserver.Options{
				RatePerMinute: cfg.HTTP.RatePerMinute,
				Burst:         cfg.HTTP.Burst,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
			if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Error("server error", zap.Error(serveErr))
	}

	hs.Shutdown()
	shutdown(gs, hsrv, log)
	log.Info("shutdown complete")
	return serveErr
}

// shutdown drains both listeners, forcing the gRPC server down after shutdownTimeout.
func shutdown(gs *grpc.Server, hsrv *http.Server, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if hsrv != nil {
		if err := hsrv.Shutdown(ctx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		gs.Stop()
	}
}
