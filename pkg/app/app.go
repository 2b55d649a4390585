// Package app wires configuration into the database, providers and services
// shared by the server and the command line tool.
package app

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"heirloom/middleware"
	"heirloom/pkg/auth"
	"heirloom/pkg/cache"
	"heirloom/pkg/config"
	"heirloom/pkg/database"
	"heirloom/pkg/lock"
	"heirloom/pkg/scheduler"
	svc "heirloom/pkg/services"
	tokenstore "heirloom/pkg/token"
)

const (
	lockTTL        = 2 * time.Minute
	cacheSize      = 256
	cacheJanitor   = time.Minute
	rateLimitIdle  = 10 * time.Minute
	tokenPruneSpec = "0 0 * * * *"
	bucketSweep    = "0 */5 * * * *"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	Provider      svc.CompletionProvider
	Store         svc.FileStore
	Revoked       *tokenstore.Store
	Auth          *svc.AuthService
	Analytics     *svc.AnalyticsService
	Legacy        *svc.LegacyService
	Conversations *svc.ConversationService
	Knowledge     *svc.KnowledgeService
	Documents     *svc.DocumentService

	cache *cache.Cache
	redis *redis.Client
}

// Open connects the database and migrates it. Services are not built.
func Open(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &App{Config: cfg, Log: log, DB: db}, nil
}

// Build opens the database and constructs every service.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}

	var locker lock.Locker = lock.NewMemory()
	if cfg.RedisURL != "" {
		client, err := lock.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		locker = lock.NewRedis(client, lockTTL)
		log.Info("conversation locks: redis")
	}

	store, err := svc.NewFileStore(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	a.cache = cache.New(cacheSize, cacheJanitor)

	a.Provider = svc.NewCompletionProvider(ctx, cfg, log)
	a.Revoked = tokenstore.New(a.DB)
	a.Auth = svc.NewAuthService(a.DB, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry()), a.Revoked, cfg.OpenRoleSignup, log)
	a.Analytics = svc.NewAnalyticsService(a.DB, log)
	a.Legacy = svc.NewLegacyService(a.DB, a.Provider, log)
	a.Conversations = svc.NewConversationService(a.DB, a.Provider, a.Analytics, a.Legacy, locker, log)
	a.Knowledge = svc.NewKnowledgeService(a.DB, a.cache, log)
	a.Documents = svc.NewDocumentService(a.DB, store, a.Knowledge, cfg.MaxUploadBytes(), log)
	return a, nil
}

// UploadsRoute returns the URL path and directory to serve local documents
// from, or empty strings when documents live in S3.
func (a *App) UploadsRoute() (string, string) {
	if _, ok := a.Store.(*svc.LocalStore); !ok {
		return "", ""
	}
	u, err := url.Parse(a.Config.UploadBaseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "", ""
	}
	return u.Path, a.Config.UploadDir
}

// Jobs are the periodic housekeeping tasks of a running server.
func (a *App) Jobs() []scheduler.Job {
	return []scheduler.Job{
		{
			Name:    "prune_revoked_tokens",
			Spec:    tokenPruneSpec,
			Timeout: time.Minute,
			Run: func(ctx context.Context) error {
				n, err := a.Revoked.PruneExpired(ctx, time.Now())
				if err == nil && n > 0 {
					a.Log.Info("pruned revoked tokens", zap.Int64("count", n))
				}
				return err
			},
		},
		{
			Name: "sweep_rate_limit_buckets",
			Spec: bucketSweep,
			Run: func(context.Context) error {
				middleware.PruneBuckets(rateLimitIdle)
				return nil
			},
		},
	}
}

func (a *App) Close() {
	if c, ok := a.Provider.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("completion provider close", zap.Error(err))
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := database.Close(a.DB); err != nil {
		a.Log.Warn("database close", zap.Error(err))
	}
}
