// Package health exposes the operational endpoints for the resolver service.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	startTime = time.Now()
	version   = "dev"
	ready     atomic.Bool
)

// SetVersion sets the build version reported by the health endpoint
func SetVersion(v string) {
	version = v
}

// SetReady sets the readiness state
func SetReady(r bool) {
	ready.Store(r)
}

// StorePinger reports canonical store reachability.
type StorePinger interface {
	PingContext(ctx context.Context) error
}

// LockPinger reports identity lock store reachability.
type LockPinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the health endpoints over the injected backends.
type Handler struct {
	db    StorePinger
	redis LockPinger
}

// NewHandler creates a new health Handler
func NewHandler(db StorePinger) *Handler {
	return &Handler{db: db}
}

// WithRedis adds the identity lock store to the health checks.
func (h *Handler) WithRedis(r LockPinger) *Handler {
	h.redis = r
	return h
}

// Register registers health check endpoints
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/api/v1/health", h.Health)
	e.GET("/api/v1/health/live", Live)
	e.GET("/api/v1/health/ready", Ready)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health returns the overall health status
func (h *Handler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	status := &HealthStatus{
		Status:     "healthy",
		Version:    version,
		Uptime:     time.Since(startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult),
		ReportedAt: time.Now(),
	}

	// Check database
	if h.db == nil {
		status.Status = "unhealthy"
		status.Checks["database"] = &CheckResult{
			Status:  "unhealthy",
			Message: "database not configured",
		}
	} else {
		start := time.Now()
		pingErr := h.db.PingContext(ctx)
		latency := time.Since(start)

		if pingErr != nil {
			status.Status = "unhealthy"
			status.Checks["database"] = &CheckResult{
				Status:  "unhealthy",
				Message: pingErr.Error(),
			}
		} else {
			status.Checks["database"] = &CheckResult{
				Status:  "healthy",
				Latency: latency.String(),
			}
		}
	}

	// Check Redis if configured
	if h.redis != nil {
		start := time.Now()
		pingErr := h.redis.Ping(ctx)
		latency := time.Since(start)

		if pingErr != nil {
			status.Status = "unhealthy"
			status.Checks["redis"] = &CheckResult{
				Status:  "unhealthy",
				Message: pingErr.Error(),
			}
		} else {
			status.Checks["redis"] = &CheckResult{
				Status:  "healthy",
				Latency: latency.String(),
			}
		}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, status)
}

// Live returns the liveness status (is the service running)
func Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready returns the readiness status (is the service ready to accept traffic)
func Ready(c echo.Context) error {
	if ready.Load() {
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
