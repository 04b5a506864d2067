package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notepipe/internal/domain"
)

// RunStatus exposes the outcome of the most recent pipeline run.
type RunStatus interface {
	LastReport() *domain.RunReport
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	runs RunStatus
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(runs RunStatus) *HealthHandler {
	return &HealthHandler{runs: runs}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. The service is ready once a run has finished
// and the last run was not aborted by an authentication failure.
func (h *HealthHandler) Readiness(c *gin.Context) {
	last := h.runs.LastReport()
	switch {
	case last == nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "no run has finished yet"})
	case last.Aborted && last.AbortReason == string(domain.KindAuthFailure):
		HandleError(c, domain.ErrAuth)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "last_run": last.RunID})
	}
}
