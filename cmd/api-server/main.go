package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PRautomacao/saude-certa/internal/api"
	"github.com/PRautomacao/saude-certa/internal/config"
	"github.com/PRautomacao/saude-certa/internal/db"
	"github.com/PRautomacao/saude-certa/internal/finance"
	"github.com/PRautomacao/saude-certa/internal/logging"
	"github.com/PRautomacao/saude-certa/internal/patients"
	redisclient "github.com/PRautomacao/saude-certa/internal/redis"
	"github.com/PRautomacao/saude-certa/internal/schedule"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logging.New(cfg.Env)
	defer log.Sync() //nolint:errcheck

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	migrator, err := db.NewMigrator(pgPool)
	if err != nil {
		log.Fatal("migrator init error", zap.Error(err))
	}
	if err := migrator.Up(rootCtx); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}
	if v, err := migrator.Version(rootCtx); err == nil {
		log.Info("database migrated", zap.Int64("version", v))
	}

	redisCtx, cancelRedis := context.WithTimeout(rootCtx, 5*time.Second)
	rdb, err := redisclient.NewRedisClient(redisCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	cancelRedis()
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	ledger := schedule.NewLedger(schedule.NewPgRepository(pgPool), locker, log)

	router := api.NewRouter(api.RouterConfig{
		Ledger:         ledger,
		Patients:       patients.NewPostgresRepository(pgPool),
		Finance:        finance.NewRepository(pgPool),
		PgPool:         pgPool,
		Redis:          rdb,
		Log:            log,
		WebhookToken:   cfg.WebhookToken,
		AdminJWTSecret: cfg.AdminJWTSecret,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	log.Info("api-server stopped")
}
