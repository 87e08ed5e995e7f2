// Command sk-server starts the Spell Keeper REST API and the gRPC
// health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/spell-keeper/internal/config"
	"github.com/and161185/spell-keeper/internal/leaderboard"
	"github.com/and161185/spell-keeper/internal/limiter"
	"github.com/and161185/spell-keeper/internal/migrate"
	"github.com/and161185/spell-keeper/internal/repository"
	"github.com/and161185/spell-keeper/internal/repository/memory"
	"github.com/and161185/spell-keeper/internal/repository/postgres"
	grpcserver "github.com/and161185/spell-keeper/internal/server/grpc"
	httpserver "github.com/and161185/spell-keeper/internal/server/http"
	"github.com/and161185/spell-keeper/internal/service"
	"github.com/and161185/spell-keeper/internal/talisman"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// storage is the set of repositories behind one backend.
type storage struct {
	users       repository.UserRepository
	spells      repository.SpellRepository
	progress    repository.ProgressRepository
	talismans   repository.TalismanRepository
	leaderboard repository.LeaderboardRepository
	lim         limiter.Limiter
	db          httpserver.Pinger
	close       func()
}

func openStorage(ctx context.Context, cfg *config.Server, log *zap.Logger) (*storage, error) {
	if cfg.Store == config.StoreMemory {
		st := memory.New()
		log.Warn("using in-memory store; data is lost on restart")
		return &storage{
			users:       st.Users(),
			spells:      st.Spells(),
			progress:    st.Progress(),
			talismans:   st.Talismans(),
			leaderboard: st.Leaderboard(),
			lim:         limiter.NewMemory(cfg.LoginPolicy()),
			close:       func() {},
		}, nil
	}

	applied, err := migrate.Up(ctx, cfg.DSN, log)
	if err != nil {
		return nil, err
	}
	log.Info("migrations applied", zap.Int64("version", applied))

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &storage{
		users:       postgres.NewUserRepo(db),
		spells:      postgres.NewSpellRepo(db),
		progress:    postgres.NewProgressRepo(db),
		talismans:   postgres.NewTalismanRepo(db),
		leaderboard: postgres.NewLeaderboardRepo(db),
		lim:         limiter.NewPG(db.Pool, cfg.LoginPolicy()),
		db:          db,
		close:       db.Close,
	}, nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	var cfg config.Server
	kong.Parse(&cfg,
		kong.Name("sk-server"),
		kong.Description("Spell Keeper gamified habit tracker API"),
		kong.UsageOnError(),
	)

	logger, err := newLogger(cfg.Dev)
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
	)

	sentryOn := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Release:          version,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			logger.Error("sentry init failed", zap.Error(err))
		} else {
			sentryOn = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(&cfg, logger, sentryOn); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Server, logger *zap.Logger, sentryOn bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := talisman.LoadEngine(cfg.Talismans)
	if err != nil {
		return err
	}
	loc := cfg.Location()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.talismans.Seed(ctx, engine.Catalog()); err != nil {
		return err
	}

	app := httpserver.New(httpserver.Deps{
		Auth:        service.NewAuthService(st.users, []byte(cfg.JWTKey), cfg.AccessTTL, st.lim),
		Spells:      service.NewSpellService(st.spells, loc),
		Completer:   service.NewCompletionService(st.progress, engine, loc, logger),
		Stats:       service.NewStatsService(st.users, st.talismans, leaderboard.NewRanker(st.leaderboard)),
		DB:          st.db,
		Log:         logger,
		JWTKey:      []byte(cfg.JWTKey),
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		Sentry:      sentryOn,
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (HTTP)", zap.String("addr", cfg.Addr))
		errCh <- app.Listen(cfg.Addr)
	}()

	var gs *grpc.Server
	if cfg.GRPCAddr != "" {
		hs := grpcserver.NewHealth(st.db, 10*time.Second, logger)
		go hs.Run(ctx)
		gs = grpcserver.NewServer(logger, hs, cfg.Dev)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			_ = app.Shutdown()
			return err
		}
		go func() {
			logger.Info("listening (gRPC)", zap.String("addr", cfg.GRPCAddr))
			errCh <- gs.Serve(lis)
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
	}

	// graceful shutdown
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if gs != nil {
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			gs.Stop()
		}
	}
	return nil
}
