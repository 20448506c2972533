package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/ev-notify/internal/gateway"
	"github.com/saransh1220/ev-notify/internal/gateway/middleware"
	"github.com/saransh1220/ev-notify/internal/modules/notification"
	"github.com/saransh1220/ev-notify/internal/shared/infrastructure/config"
	"github.com/saransh1220/ev-notify/internal/shared/infrastructure/database"
	"github.com/saransh1220/ev-notify/internal/shared/logger"
	"github.com/saransh1220/ev-notify/migrations"
	"github.com/saransh1220/ev-notify/pkg/migration"
)

func main() {
	dotenvErr := config.LoadDotEnv()
	cfg := config.Load()

	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)
	if dotenvErr != nil {
		log.Warn("could not read .env file", "error", dotenvErr)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	log.Info("connecting to database", "host", cfg.Database.Host, "db", cfg.Database.DBName)
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := migration.AutoMigrate(cfg.Database.URL(), migrations.FS, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedis(cfg.Redis.RedisConfig)
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("redis connected", "host", cfg.Redis.Host)
	}

	module := newNotificationModule(cfg, db, rdb, log)
	module.Start(context.Background())
	defer module.Shutdown()

	server := gateway.NewServer(cfg.Server.Port, buildHandler(cfg, module))
	server.OnShutdown(module.Shutdown)
	return server.Start()
}

func newNotificationModule(cfg config.Config, db *sqlx.DB, rdb *redis.Client, log *slog.Logger) *notification.Module {
	n := cfg.Notification
	return notification.NewModule(db, rdb, notification.Config{
		KeepAlive:      n.KeepAlive,
		PullLimit:      n.PullLimit,
		EmitDelivery:   n.EmitDelivery,
		SessionBuffer:  n.SessionBuffer,
		RedisChannel:   n.RedisChannel,
		IdempotencyTTL: n.IdempotencyTTL,
	}, log)
}

// buildHandler assembles routes and the outer middleware chain.
func buildHandler(cfg config.Config, module *notification.Module) http.Handler {
	mux := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
		NotificationHandler: module.HTTPHandler(),
	})

	var handler http.Handler = mux
	handler = middleware.PrometheusMiddleware(handler)
	handler = middleware.CORSMiddleware(handler, cfg.Server.AllowedOrigins)
	return handler
}
