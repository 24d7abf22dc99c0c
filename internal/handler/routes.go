package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/middleware"
	"github.com/noah-isme/ripe-api/internal/models"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Ripe          *RipeHandler
	Notifications *NotificationHandler
	Register      *RegisterHandler
	Ops           *MetricsHandler
}

// RouteOptions carries the shared middleware for protected routes.
type RouteOptions struct {
	Prefix      string
	Auth        gin.HandlerFunc
	AuditLogger *zap.Logger
}

// RegisterRoutes mounts ops endpoints at the root and the API under opts.Prefix.
func RegisterRoutes(r *gin.Engine, h Handlers, opts RouteOptions) {
	if h.Ops != nil {
		r.GET("/health", h.Ops.Health)
		r.GET("/ready", h.Ops.Ready)
		r.GET("/metrics", h.Ops.Prometheus)
	}

	api := r.Group(opts.Prefix)
	if h.Register != nil {
		api.GET("/ripe/register/download", h.Register.Download)
	}

	secured := api.Group("")
	secured.Use(opts.Auth)

	ripe := secured.Group("/ripe")
	if h.Ripe != nil {
		facilitators := ripe.Group("", middleware.RequireRoles(models.RoleFacilitator))
		facilitators.POST("/allocations", middleware.Audit(opts.AuditLogger, "ripe_allocate", "submission"), h.Ripe.Allocate)
		facilitators.GET("/preview", middleware.WithResponseMeta(), h.Ripe.Preview)
	}
	if h.Register != nil {
		ripe.GET("/register",
			middleware.RequireRoles(models.RoleFacilitator, models.RoleAdmin),
			middleware.Audit(opts.AuditLogger, "ripe_register_export", "ripe_register"),
			h.Register.Export,
		)
	}

	if h.Notifications != nil {
		notifications := secured.Group("/notifications")
		notifications.GET("", h.Notifications.List)
		notifications.PATCH("/:id/read", h.Notifications.MarkRead)
	}
}
