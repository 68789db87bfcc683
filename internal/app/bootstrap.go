package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"change-request-tracker/internal/core/auth"
	"change-request-tracker/internal/core/cache"
	"change-request-tracker/internal/core/config"
	"change-request-tracker/internal/core/database"
	"change-request-tracker/internal/core/logger"
	"change-request-tracker/internal/feature/changerequest"
	"change-request-tracker/internal/feature/department"
	"change-request-tracker/internal/feature/summary"
	"change-request-tracker/internal/feature/user"
	"change-request-tracker/internal/repo"
)

// Runtime is everything a binary needs after Bootstrap.
type Runtime struct {
	Coordinator *Coordinator
	JWT         *auth.JWTer
	store       *repo.Store
	cache       *cache.Cache
}

// Bootstrap opens the store, seeds it and loads the first snapshot.
func Bootstrap(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	store := repo.NewStore(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             logger.ToStdLogger(log.Named("gorm"), zapcore.WarnLevel),
	})
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	log.Info("store ready",
		zap.String("driver", cfg.DB.Driver),
		zap.Int("schema_version", store.SchemaVersion()),
	)

	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	c.Prefix = cfg.App.Name + ":summary:"
	sum := summary.NewClient(summary.Options{
		BaseURL:  cfg.Summarizer.BaseURL,
		APIKey:   cfg.Summarizer.APIKey,
		Model:    cfg.Summarizer.Model,
		CacheTTL: time.Duration(cfg.Redis.TTLMin) * time.Minute,
	}, c, log.Named("summary"))
	if cfg.Summarizer.APIKey == "" {
		log.Warn("summarizer api key not set; every request gets the fallback summary")
	}

	coord := New(
		user.NewService(store.Users, nil, log.Named("user")),
		changerequest.NewService(store.Requests, sum, changerequest.Options{
			SummaryTimeout:  time.Duration(cfg.Summarizer.TimeoutSec) * time.Second,
			FallbackSummary: cfg.Summarizer.Fallback,
		}, log.Named("changerequest")),
		department.NewService(store.Departments, store.Requests, cfg.Seed.Departments, log.Named("department")),
		log.Named("app"),
	)
	if err := coord.Start(ctx); err != nil {
		_ = c.Close()
		_ = store.Close()
		return nil, err
	}

	return &Runtime{
		Coordinator: coord,
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
		store: store,
		cache: c,
	}, nil
}

func (r *Runtime) Close() error {
	cerr := r.cache.Close()
	if err := r.store.Close(); err != nil {
		return err
	}
	return cerr
}
