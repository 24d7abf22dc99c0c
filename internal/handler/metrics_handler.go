package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/service"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
	"github.com/noah-isme/ripe-api/pkg/response"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	PingContext(ctx context.Context) error
}

type cachePinger interface {
	Ping(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	cache   cachePinger
	logger  *zap.Logger
}

// NewMetricsHandler constructs a metrics handler. cache may be nil when Redis is disabled.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, cache cachePinger, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{metrics: metrics, db: db, cache: cache, logger: logger}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Fails when the database is unreachable. An unreachable cache only degrades the status.
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("readiness database ping failed", zap.Error(err))
			response.Error(c, appErrors.New("NOT_READY", http.StatusServiceUnavailable, "database unavailable"))
			return
		}
	}

	status := gin.H{"status": "ready", "database": "ok", "cache": "disabled"}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("readiness cache ping failed", zap.Error(err))
			status["cache"] = "unavailable"
			status["status"] = "degraded"
		} else {
			status["cache"] = "ok"
		}
	}
	c.JSON(http.StatusOK, status)
}
