package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/PRautomacao/saude-certa/internal/config"
	"github.com/PRautomacao/saude-certa/internal/db"
	"github.com/PRautomacao/saude-certa/internal/logging"
)

func main() {
	statusOnly := flag.Bool("status", false, "print the current migration version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logging.New(cfg.Env)
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool)
	if err != nil {
		log.Fatal("migrator init error", zap.Error(err))
	}
	defer migrator.Close() //nolint:errcheck

	if !*statusOnly {
		if err := migrator.Up(ctx); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
	}

	version, err := migrator.Version(ctx)
	if err != nil {
		log.Fatal("version lookup failed", zap.Error(err))
	}
	log.Info("migrations up to date", zap.Int64("version", version))
}
