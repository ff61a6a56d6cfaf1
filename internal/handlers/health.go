package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/addrsync/internal/database"
	"github.com/stwalsh4118/addrsync/internal/middleware"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// HealthCheckTimeout is the timeout for database health checks
	HealthCheckTimeout = 2 * time.Second
)

// HealthHandler handles health check and readiness endpoints. Readiness
// covers both collaborator databases: the GIS store and the registry.
type HealthHandler struct {
	gis       *database.Database
	registry  *database.Database
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(gis, registry *database.Database, env string) *HealthHandler {
	return &HealthHandler{
		gis:       gis,
		registry:  registry,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status   string `json:"status"`
	GIS      string `json:"gis"`
	Registry string `json:"registry"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

// Health handles GET /health endpoint.
// This is a basic liveness check that always returns 200 OK and checks no
// dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// It verifies both database connections; 503 if either is unavailable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	resp := ReadyResponse{
		Status:   "ready",
		GIS:      "connected",
		Registry: "connected",
	}

	if err := h.gis.Ping(ctx); err != nil {
		h.logPingFailure(c, "gis", err)
		resp.GIS = "disconnected"
	}
	if err := h.registry.Ping(ctx); err != nil {
		h.logPingFailure(c, "registry", err)
		resp.Registry = "disconnected"
	}

	if resp.GIS != "connected" || resp.Registry != "connected" {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// logPingFailure logs one failed database health check.
func (h *HealthHandler) logPingFailure(c *gin.Context, name string, err error) {
	if log := middleware.GetLogger(c); log != nil {
		log.Error("Database health check failed", err, map[string]interface{}{
			"database": name,
			"timeout":  HealthCheckTimeout.String(),
		})
	}
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, and uptime.
func (h *HealthHandler) Info(c *gin.Context) {
	uptime := time.Since(h.startTime)

	c.JSON(http.StatusOK, InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(uptime),
	})
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
