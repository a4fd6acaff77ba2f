package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/repository"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/cache"
	"github.com/noah-isme/staff-records-api/pkg/config"
	"github.com/noah-isme/staff-records-api/pkg/database"
	"github.com/noah-isme/staff-records-api/pkg/export"
	"github.com/noah-isme/staff-records-api/pkg/storage"
)

// Container holds the wired services shared by the HTTP server and the CLI.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	AuditStore *repository.AuditRepository

	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Auth         *service.AuthService
	Staff        *service.StaffService
	Applications *service.ApplicationService
	Imports      *service.ImportService
	Exports      *service.ExportService
	Photos       *service.PhotoService
	Seniority    *service.SeniorityRefreshService
	AuditLogs    *service.AuditService
}

// New connects to PostgreSQL and Redis and builds every service.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		logger.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		redisClient = nil
	}

	blobs, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: redisClient}

	validate := validator.New()
	txManager := database.NewTxManager(db)
	staffRepo := repository.NewStaffRepository(db)
	employmentRepo := repository.NewEmploymentRepository(db)
	profileChildren := repository.NewProfileChildRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	applicationChildren := repository.NewApplicationChildRepository(db)
	userRepo := repository.NewUserRepository(db)
	c.AuditStore = repository.NewAuditRepository(db)

	if cfg.Metrics.Enabled {
		c.Metrics = service.NewMetricsService()
	}
	c.Cache = service.NewCacheService(repository.NewCacheRepository(redisClient, logger), c.Metrics, cfg.Cache.StatisticsTTL, logger, cfg.Cache.Enabled && redisClient != nil)

	derived := service.NewDerivedStateService(staffRepo, employmentRepo, profileChildren, logger)

	c.Auth = service.NewAuthService(userRepo, c.AuditStore, validate, logger, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	c.Staff = service.NewStaffService(staffRepo, employmentRepo, profileChildren, derived, txManager, c.AuditStore, validate, logger,
		service.WithStatisticsCache(c.Cache, cfg.Cache.StatisticsTTL))
	c.Applications = service.NewApplicationService(applicationRepo, applicationChildren, staffRepo, profileChildren, derived, blobs, txManager, c.AuditStore, validate, logger,
		service.WithApplicationMetrics(c.Metrics), service.WithApplicationCache(c.Cache))
	c.Imports = service.NewImportService(staffRepo, profileChildren, derived, txManager, c.AuditStore, c.Metrics, c.Cache, logger)
	c.Exports = service.NewExportService(staffRepo, profileChildren, blobs, c.AuditStore, logger, export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter())
	c.Photos = service.NewPhotoService(staffRepo, blobs, storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL), cfg.APIPrefix, cfg.Storage.MaxUploadBytes, c.AuditStore, logger)
	c.Seniority = service.NewSeniorityRefreshService(staffRepo, derived, c.Metrics, logger)
	c.AuditLogs = service.NewAuditService(c.AuditStore)

	return c, nil
}

// Close releases the database pool and the Redis client.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
