package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/config"
	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/internal/infrastructure/google"
	pginfra "github.com/oksasatya/waveai-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/waveai-auth/internal/infrastructure/redisstore"
	"github.com/oksasatya/waveai-auth/internal/infrastructure/search"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
)

// Container holds the components built at startup. It is constructed once in
// main and passed explicitly to the router; nothing here is global.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Redis  redis.UniversalClient

	Users    *redisstore.UserRepository
	Sessions *redisstore.SessionRepository
	Tokens   *helpers.TokenIssuer
	Manager  *application.SessionManager
	Auth     *application.AuthService
	UserSvc  *application.UserService
	Cookies  *helpers.Manager

	// Optional integrations; nil when not configured.
	Pool      *pgxpool.Pool
	Publisher *helpers.RabbitPublisher
	ES        *elasticsearch.Client
	GCS       *storage.Client

	closers []func()
}

// NewCore wires the Redis backed services every entrypoint needs.
func NewCore(cfg *config.Config, logger *logrus.Logger, rdb redis.UniversalClient) (*Container, error) {
	tokens, err := helpers.NewTokenIssuer(cfg.SecretKey, cfg.Algorithm, cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	users := redisstore.NewUserRepository(rdb)
	sessions := redisstore.NewSessionRepository(rdb, redisstore.WithTTL(cfg.SessionTTL))
	manager := application.NewSessionManager(sessions, users, cfg.SessionTTL, logger)

	auth := application.NewAuthService(users, tokens, manager, logger)
	auth.AppName = cfg.AppName
	if cfg.GoogleEnabled() {
		auth.Google = google.NewProvider(google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Redis:    rdb,
		Users:    users,
		Sessions: sessions,
		Tokens:   tokens,
		Manager:  manager,
		Auth:     auth,
		UserSvc:  application.NewUserService(users, sessions, rdb, logger),
		Cookies:  helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}, nil
}

// New builds the full HTTP container. Redis is required; Postgres, RabbitMQ,
// Elasticsearch and GCS are attached when configured and logged otherwise.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	rdb, err := helpers.NewRedisClient(helpers.RedisOptions{
		URL:          cfg.RedisURL,
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisDialTimeout,
		ReadTimeout:  cfg.RedisRWTimeout,
		WriteTimeout: cfg.RedisRWTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := helpers.RedisPing(ctx, rdb); err != nil {
		logger.WithError(err).Warn("redis not reachable at startup")
	}

	c, err := NewCore(cfg, logger, rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	if cfg.DatabaseURL != "" {
		if err := pginfra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, logger); err != nil {
			logger.WithError(err).Warn("audit migrations failed; audit log disabled")
		} else if pool, err := pginfra.NewPool(ctx, cfg.DatabaseURL, pginfra.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		}); err != nil {
			logger.WithError(err).Warn("postgres unavailable; audit log disabled")
		} else {
			c.Pool = pool
			c.Auth.Audit = pginfra.NewAuditRepository(pool)
			c.closers = append(c.closers, pool.Close)
		}
	}

	if cfg.RabbitMQURL != "" {
		if pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue); err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; auth emails disabled")
		} else {
			c.Publisher = pub
			c.Auth.Events = pub
			c.closers = append(c.closers, pub.Close)
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		if es, err := helpers.NewESClient(ctx, helpers.ESOptions{
			Addrs:      addrs,
			Username:   cfg.ElasticsearchUser,
			Password:   cfg.ElasticsearchPass,
			MaxRetries: 2,
		}); err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable; user search disabled")
		} else {
			c.ES = es
			idx := search.NewUserIndex(es, cfg.ESUsersIndex)
			c.Auth.Index = idx
			c.UserSvc.Index = idx
		}
	}

	if cfg.GCSBucket != "" {
		if gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath); err != nil {
			logger.WithError(err).Warn("gcs unavailable; avatar upload disabled")
		} else {
			c.GCS = gcs
			c.UserSvc.Avatars = helpers.NewGCSUploader(gcs, cfg.GCSBucket)
			c.closers = append(c.closers, func() { _ = gcs.Close() })
		}
	}

	return c, nil
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
