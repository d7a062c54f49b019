// Package app assembles the engine and its infrastructure from
// configuration.  Both binaries start from Build.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/cache"
	"github.com/iliyamo/tour-marketplace/internal/config"
	"github.com/iliyamo/tour-marketplace/internal/database"
	"github.com/iliyamo/tour-marketplace/internal/queue"
	"github.com/iliyamo/tour-marketplace/internal/repository"
	"github.com/iliyamo/tour-marketplace/internal/repository/memstore"
	"github.com/iliyamo/tour-marketplace/internal/service"
	"github.com/iliyamo/tour-marketplace/internal/utils"
)

// App is a running set of dependencies.  Redis may be nil.
type App struct {
	Cfg    config.Config
	Log    *logrus.Logger
	Engine *service.Engine
	Redis  *redis.Client

	db *sql.DB
}

// Build opens the store selected by STORE_DRIVER, connects the optional
// Redis and RabbitMQ integrations and returns the engine on top.
func Build(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLocation(cfg.Location()),
		service.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.RabbitURL != "" {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitURL, cfg.RabbitDial)))
	} else {
		log.Info("RABBITMQ_URL not set, order events disabled")
	}
	a.Redis = config.NewRedisClient(log)
	if cc := config.LoadCacheConfig(); cc.Enabled && a.Redis != nil {
		opts = append(opts, service.WithCache(cache.NewCalendar(a.Redis, cc.Prefix, cc.TTL)))
	}
	a.Engine = service.New(store, log, opts...)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	switch a.Cfg.StoreDriver {
	case "memory":
		a.Log.Warn("using the in-memory store, data is lost on exit")
		return memstore.New(), nil
	case "mysql":
		db, err := database.Open(ctx, database.Options{
			User: a.Cfg.DBUser,
			Pass: a.Cfg.DBPass,
			Host: a.Cfg.DBHost,
			Port: a.Cfg.DBPort,
			Name: a.Cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		if a.Cfg.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
			a.Log.Info("schema migrated")
		}
		a.db = db
		return repository.NewMySQLStore(db), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", a.Cfg.StoreDriver)
}

// SeedAdmin creates the configured admin account when both seed variables
// are set.
func (a *App) SeedAdmin(ctx context.Context) error {
	if a.Cfg.SeedAdminEmail == "" || a.Cfg.SeedAdminPassword == "" {
		return nil
	}
	hash, err := utils.HashPassword(a.Cfg.SeedAdminPassword, a.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	u, err := a.Engine.SeedAdmin(ctx, a.Cfg.SeedAdminEmail, hash)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	a.Log.WithField("user_id", u.ID).Info("admin account ready")
	return nil
}

// Close releases the database pool and the Redis client.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
