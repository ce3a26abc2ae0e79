package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/forkops/forksync/internal/db"
	"github.com/forkops/forksync/internal/runner"
)

// StatusProvider exposes the live state of the current run.
type StatusProvider interface {
	Snapshot() runner.Status
}

// Handler serves the status endpoints.
type Handler struct {
	status  StatusProvider
	history db.Store
	logger  *logrus.Logger
}

// NewHandler creates a handler. history may be nil when run-history storage
// is not configured.
func NewHandler(status StatusProvider, history db.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		status:  status,
		history: history,
		logger:  logger,
	}
}

// Health godoc
// @Summary Liveness probe
// @Description Reports that the process is up
// @Tags status
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus godoc
// @Summary Current run status
// @Description Phase, current repository and live counters of the running sync
// @Tags status
// @Produce json
// @Success 200 {object} runner.Status
// @Router /status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Snapshot())
}

// ListRuns godoc
// @Summary Recent runs
// @Description Run reports recorded in the history store, newest first
// @Tags status
// @Produce json
// @Param limit query int false "Maximum number of runs" default(20)
// @Success 200 {array} models.RunReport
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history not configured"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	reports, err := h.history.ListRunReports(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("Failed to list run reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, reports)
}
