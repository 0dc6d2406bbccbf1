package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/arvensis/trivia-arena/internal/config"
	"github.com/arvensis/trivia-arena/internal/db/repository"
	sqlcgen "github.com/arvensis/trivia-arena/internal/db/sqlc"
	"github.com/arvensis/trivia-arena/internal/dispatcher"
	"github.com/arvensis/trivia-arena/internal/engine"
	"github.com/arvensis/trivia-arena/internal/identity"
	"github.com/arvensis/trivia-arena/internal/logging"
	"github.com/arvensis/trivia-arena/internal/question"
	"github.com/arvensis/trivia-arena/internal/room"
	"github.com/arvensis/trivia-arena/internal/server"
	"github.com/arvensis/trivia-arena/pkg/http/ws"
)

// Application aggregates shared infrastructure: Postgres, Redis, the Match
// Engine, the Room Registry, the Event Dispatcher, and the thin HTTP/WS
// surface in front of them.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool        *pgxpool.Pool
	redis       *redis.Client
	http        *http.Server
	cancelConns context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis, the Identity Gate, the
// Question Source, the Match Engine, the Room Registry, and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	store := repository.NewPostgresStore(pool)

	idGate := identity.NewJWTGate([]byte(cfg.Security.JWTSecret))

	poolSource := question.NewPoolSource(sqlcgen.New(pool))
	questionSource := question.NewCachedSource(poolSource, redisClient, 0)

	registry := room.NewRegistry(cfg.Engine.BroadcastQueueCap, logger)

	engineCfg := engine.Config{
		QuestionDuration:       secToDuration(cfg.Engine.QuestionDurationSec),
		AutoAdvanceDelay:       secToDuration(cfg.Engine.AutoAdvanceDelaySec),
		MaxQuestionsPerMatch:   cfg.Engine.MaxQuestionsPerMatch,
		SettlementRetries:      cfg.Engine.SettlementRetries,
		ExecutorAcquireTimeout: cfg.Engine.ExecutorAcquireTimeout,
		ExecutorInboxCap:       32,
	}

	disp := dispatcher.New(registry, logger)
	eng := engine.New(store, questionSource, disp, logger, engineCfg)
	disp.SetEngine(eng)

	registry.OnDetach(func(matchID, userID uuid.UUID) {
		logger.Info().Str("match_id", matchID.String()).Str("user_id", userID.String()).Msg("participant connection detached")
	})

	bgCtx, cancelConns := context.WithCancel(context.Background())
	wsHandler := server.NewWebSocketHandler(idGate, func(conn *ws.Connection) {
		disp.HandleConnection(bgCtx, conn)
	}, cfg.Engine.BroadcastQueueCap, logger)
	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, wsHandler.HandleUpgrade)

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		cancelConns: cancelConns,
	}, nil
}

// Run starts the HTTP server and waits for a termination signal.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Engine.ShutdownGrace)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	a.cancelConns()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func secToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
