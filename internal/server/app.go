// Package server wires the teamboard server together: storage, services,
// notification delivery, the HTTP API and the internal gRPC endpoint.
// It handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/teamboard/internal/cryptox"
	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
	"github.com/dmitrijs2005/teamboard/internal/server/config"
	"github.com/dmitrijs2005/teamboard/internal/server/httpapi"
	"github.com/dmitrijs2005/teamboard/internal/server/notify"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/teamboard/internal/server/services"

	gs "github.com/dmitrijs2005/teamboard/internal/server/grpc"
)

const redisPingTimeout = 2 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	issuer, err := auth.NewIssuer(c.Auth.BaseSecret)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("issuer init error: %w", err)
	}

	sealer, err := cryptox.NewTokenCrypto([]byte(c.Auth.BaseSecret), []byte(c.Auth.InviteSalt))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invite crypto init error: %w", err)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if c.AMQPURL != "" {
		notifier = notify.NewAMQPNotifier(c.AMQPURL, notify.DefaultQueue, logger)
	}

	app := &App{config: c, logger: logger, db: db}

	var limiter *httpapi.RateLimiter
	if rdb := app.connectRedis(ctx); rdb != nil {
		app.redis = rdb
		limiter = httpapi.NewRateLimiter(c.RateLimit, rdb, logger)
	}

	invites := services.NewInviteService(db, m, sealer, notifier, c, logger)

	app.httpServer = httpapi.NewServer(c.EndpointAddrHTTP, httpapi.Deps{
		Auth:      services.NewAuthService(db, m, issuer, c, logger),
		TwoFactor: services.NewTwoFactorService(db, m, issuer, c, logger),
		Invites:   invites,
		Verifier:  issuer,
		Notifier:  notifier,
		Limiter:   limiter,
	}, logger)

	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, issuer, invites, logger)

	return app, nil
}

// connectRedis returns nil when no address is configured or the server does
// not answer; rate limiting is then off.
func (app *App) connectRedis(ctx context.Context) *redis.Client {
	if app.config.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		app.logger.Warn(ctx, "redis unavailable, rate limiting disabled", "addr", app.config.RedisAddr, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts both servers and blocks until a signal arrives or one of them
// fails, then releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
