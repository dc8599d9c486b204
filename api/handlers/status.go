package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fleetpilot/fleetpilot/pkg/database/queries"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// CycleSource exposes the latest cycle to the read-only status API. The
// agent implements it.
type CycleSource interface {
	LatestRecord() *models.CycleRecord
}

type StatusHandler struct {
	agent  CycleSource
	cycles *queries.CycleRepository
}

// NewStatusHandler builds the handler. cycles may be nil when no database
// is configured; history endpoints then return 404.
func NewStatusHandler(agent CycleSource, cycles *queries.CycleRepository) *StatusHandler {
	return &StatusHandler{agent: agent, cycles: cycles}
}

// Status returns the most recent cycle record.
func (h *StatusHandler) Status(c *gin.Context) {
	record := h.agent.LatestRecord()
	if record == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no cycle has completed yet"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Cycles returns recent persisted cycle rows for a resource.
func (h *StatusHandler) Cycles(c *gin.Context) {
	if h.cycles == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle history requires a database"})
		return
	}

	resourceID := c.Param("resource")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	rows, err := h.cycles.GetRecent(c.Request.Context(), resourceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cycle history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycles": rows, "count": len(rows)})
}

// CycleErrors returns the stage failures persisted for one cycle.
func (h *StatusHandler) CycleErrors(c *gin.Context) {
	if h.cycles == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle history requires a database"})
		return
	}

	cycleID := c.Param("id")

	errs, err := h.cycles.GetErrors(c.Request.Context(), cycleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cycle errors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"errors": errs, "count": len(errs)})
}
