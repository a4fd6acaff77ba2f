package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/staff-records-api/api/swagger"
	"github.com/noah-isme/staff-records-api/internal/handler"
	"github.com/noah-isme/staff-records-api/internal/middleware"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/config"
	"github.com/noah-isme/staff-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/staff-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/staff-records-api/pkg/middleware/requestid"
)

// archiveLimitFactor scales the single upload limit for ZIP photo batches.
const archiveLimitFactor = 10

// NewRouter registers every HTTP route on a fresh gin engine.
func NewRouter(c *Container) *gin.Engine {
	cfg := c.Config
	maxUpload := cfg.Storage.MaxUploadBytes

	authHandler := handler.NewAuthHandler(c.Auth)
	staffHandler := handler.NewStaffHandler(c.Staff)
	applicationHandler := handler.NewApplicationHandler(c.Applications, maxUpload)
	importHandler := handler.NewImportHandler(c.Imports, maxUpload, cfg.Import.MaxReportedErrors)
	exportHandler := handler.NewExportHandler(c.Exports)
	photoHandler := handler.NewPhotoHandler(c.Photos, maxUpload, maxUpload*archiveLimitFactor)
	auditHandler := handler.NewAuditHandler(c.AuditLogs)
	metricsHandler := handler.NewMetricsHandler(c.Metrics, nil)
	if c.DB != nil {
		metricsHandler = handler.NewMetricsHandler(c.Metrics, c.DB)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Public onboarding form and signed photo links.
	api.POST("/applications", applicationHandler.Submit)
	api.POST("/applications/:id/picture", applicationHandler.UploadPicture)
	api.GET("/photos/:token", photoHandler.Serve)

	secured := api.Group("")
	secured.Use(middleware.JWT(c.Auth))

	authSecured := secured.Group("/auth")
	authSecured.POST("/logout", authHandler.Logout)
	authSecured.POST("/change-password", authHandler.ChangePassword)
	authSecured.GET("/me", authHandler.Me)

	secured.POST("/users", middleware.RequireRoles(models.RoleAdmin), middleware.RequirePermission(models.PermManageUsers), authHandler.CreateUser)
	secured.GET("/audit-logs", middleware.RequirePermission(models.PermManageUsers), auditHandler.List)
	secured.GET("/statistics", middleware.RequirePermission(models.PermViewStatistics), staffHandler.Statistics)

	review := secured.Group("/applications")
	review.Use(middleware.RequirePermission(models.PermReviewApplications))
	review.GET("", applicationHandler.List)
	review.GET("/:id", applicationHandler.Get)
	review.POST("/approve", applicationHandler.Approve)
	review.POST("/reject", applicationHandler.Reject)

	view := middleware.RequirePermission(models.PermViewAllStaff)
	edit := middleware.RequirePermission(models.PermEditStaff)

	staff := secured.Group("/staff")
	staff.GET("", view, staffHandler.List)
	staff.GET("/export", middleware.RequirePermission(models.PermExportData), exportHandler.Export)
	staff.POST("/import", middleware.RequirePermission(models.PermImportData), importHandler.Import)
	staff.POST("/photos/batch", middleware.RequirePermission(models.PermImportData), photoHandler.Batch)
	staff.GET("/:id", view, middleware.Audit(c.AuditStore, c.Logger, models.AuditActionView, models.ResourceStaffProfile), staffHandler.Get)
	staff.POST("", edit, staffHandler.Create)
	staff.PUT("/:id", edit, staffHandler.Update)
	staff.DELETE("/:id", edit, staffHandler.Delete)

	staff.POST("/:id/employment", edit, staffHandler.AddEmployment)
	staff.PUT("/:id/employment/:recordId", edit, staffHandler.UpdateEmployment)
	staff.DELETE("/:id/employment/:recordId", edit, staffHandler.DeleteEmployment)
	staff.POST("/:id/education", edit, staffHandler.AddEducation)
	staff.PUT("/:id/education/:recordId", edit, staffHandler.UpdateEducation)
	staff.DELETE("/:id/education/:recordId", edit, staffHandler.DeleteEducation)

	staff.POST("/:id/photo", edit, photoHandler.Upload)
	staff.GET("/:id/photo-url", view, photoHandler.SignedURL)

	return r
}
