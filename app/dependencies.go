package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/ip-registry/config"
	"github.com/upb/ip-registry/gateway"
	"github.com/upb/ip-registry/migrations"
	"github.com/upb/ip-registry/repositories"
	"github.com/upb/ip-registry/repositories/postgres"
	"github.com/upb/ip-registry/services/audit"
	"github.com/upb/ip-registry/services/auditlog"
	"github.com/upb/ip-registry/services/auth"
	"github.com/upb/ip-registry/services/ipaddress"
	"github.com/upb/ip-registry/services/ratelimit"
	"github.com/upb/ip-registry/tokens"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Dependencies holds the wired components of one process.
// Each constructor fills only what its process needs.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Login throttle storage; RedisCounter is nil without REDIS_URL
	Redis        *redis.Client
	RedisCounter *ratelimit.RedisCounter

	// Audit emitter; the auth service posts to the app service, the app
	// service writes to its own table
	Audit *audit.Service

	// Auth service
	AuthService *auth.Service

	// App service
	IPAddresses *ipaddress.Service
	AuditLogs   *auditlog.Service

	// Gateway
	Mediator  *gateway.Mediator
	AuthProxy *gateway.Proxy
	AppProxy  *gateway.Proxy
}

// NewAuthDependencies wires the auth service: token codec, session store,
// login throttle and the audit emitter posting to the app service.
func NewAuthDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if err := cfg.RequireJWTSecret(); err != nil {
		return nil, err
	}
	codec, err := tokens.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg, migrations.SetAuth); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.Repos = deps.RepoFactory.NewAuthRepositories()
	deps.TxManager = deps.RepoFactory.GetTransactionManager()

	throttle, err := deps.initThrottle(cfg)
	if err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize login throttle: %w", err)
	}

	sink := audit.NewHTTPSink(cfg.Services.AppServiceURL, cfg.Audit.SinkTimeout)
	if err := deps.initAudit(sink, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	deps.AuthService = auth.NewService(codec, deps.Repos, deps.TxManager, deps.Audit, throttle, auth.Config{
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}, logger)

	logger.Info("auth service dependencies initialized")
	return deps, nil
}

// NewAppDependencies wires the app service: IP registry, audit trail
// queries and the audit emitter writing to the audit_logs table.
func NewAppDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg, migrations.SetApp); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.Repos = deps.RepoFactory.NewAppRepositories()
	deps.TxManager = deps.RepoFactory.GetTransactionManager()

	if err := deps.initAudit(deps.Repos.AuditLogs, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	deps.IPAddresses = ipaddress.NewService(deps.Repos.IPAddresses, deps.Audit, logger)
	deps.AuditLogs = auditlog.NewService(deps.Repos.AuditLogs, deps.Repos.IPAddresses, logger)

	logger.Info("app service dependencies initialized")
	return deps, nil
}

// NewGatewayDependencies wires the gateway mediator and its two upstream proxies
func NewGatewayDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	authProxy, err := gateway.NewProxy("auth-service", cfg.Services.AuthServiceURL, cfg.Services.ProxyTimeout, logger)
	if err != nil {
		return nil, err
	}
	appProxy, err := gateway.NewProxy("app-service", cfg.Services.AppServiceURL, cfg.Services.ProxyTimeout, logger)
	if err != nil {
		return nil, err
	}

	client := gateway.NewAuthClient(cfg.Services.AuthServiceURL, cfg.Services.UpstreamTimeout)
	if cfg.Services.ContextSecret == "" {
		logger.Warn("GATEWAY_CONTEXT_SECRET not set, forwarded identity is unsigned")
	}

	logger.Info("gateway dependencies initialized",
		zap.String("auth_service", cfg.Services.AuthServiceURL),
		zap.String("app_service", cfg.Services.AppServiceURL))

	return &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Mediator:  gateway.NewMediator(client, cfg.Services.ContextSecret, logger),
		AuthProxy: authProxy,
		AppProxy:  appProxy,
	}, nil
}

// initDatabase opens the pool and applies the migration set when DB_AUTO_MIGRATE is on
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config, set string) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Run(cfg.Database.DSN(), set, "up"); err != nil {
			return fmt.Errorf("failed to apply %s migrations: %w", set, err)
		}
		d.Logger.Info("migrations applied", zap.String("set", set))
	}

	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// initThrottle keeps failure counts in Redis when configured, in memory otherwise
func (d *Dependencies) initThrottle(cfg *config.Config) (*ratelimit.LoginThrottle, error) {
	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()

	if cfg.Redis.URL != "" {
		client, err := ratelimit.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		d.Redis = client
		d.RedisCounter = ratelimit.NewRedisCounter(client)
		counter = d.RedisCounter
		d.Logger.Info("login throttle backed by redis")
	} else {
		d.Logger.Info("login throttle backed by process memory")
	}

	return ratelimit.NewLoginThrottle(counter, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockoutWindow, d.Logger), nil
}

func (d *Dependencies) initAudit(sink audit.Sink, cfg *config.Config) error {
	d.Audit = audit.NewService(sink, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
		SinkTimeout: cfg.Audit.SinkTimeout,
	})
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	return nil
}

// Close drains the audit queue and releases connections
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs error

	if d.Audit != nil {
		timeout := d.Config.Server.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil && !errors.Is(err, audit.ErrNotStarted) {
			errs = multierr.Append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	if errs != nil {
		return fmt.Errorf("errors during shutdown: %w", errs)
	}
	return nil
}
