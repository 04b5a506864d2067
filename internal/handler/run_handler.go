package handler

import (
	"github.com/gin-gonic/gin"

	"notepipe/internal/domain"
)

// RunHandler serves pipeline run reports.
type RunHandler struct {
	runs RunStatus
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runs RunStatus) *RunHandler {
	return &RunHandler{runs: runs}
}

// runResponse is a RunReport with its counters spelled out.
type runResponse struct {
	*domain.RunReport
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Summary   string `json:"summary"`
}

// Latest handles GET /runs/latest
func (h *RunHandler) Latest(c *gin.Context) {
	last := h.runs.LastReport()
	if last == nil {
		HandleError(c, domain.ErrNotFound)
		return
	}
	RespondOK(c, runResponse{
		RunReport: last,
		Succeeded: last.Succeeded(),
		Failed:    last.Failed(),
		Skipped:   last.Skipped(),
		Summary:   last.Summary(),
	})
}
