package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"photochat/internal/model"
)

// StatsProvider reports live connection statistics.
type StatsProvider interface {
	GetStats() model.MonitorResponse
}

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
}

type monitorHandler struct {
	stats StatsProvider
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(stats StatsProvider) MonitorHandler {
	return &monitorHandler{
		stats: stats,
	}
}

// GetHubStats returns current hub statistics
// @Summary Get live chat hub statistics
// @Description Returns registered sessions, their state and online flags
// @Tags Monitor
// @Produce json
// @Success 200 {object} model.MonitorResponse
// @Router /cf/api/monitor/stats [get]
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	stats := h.stats.GetStats()

	c.JSON(http.StatusOK, gin.H{
		"HttpStatusCode": http.StatusOK,
		"ResponseBody":   stats,
		"IsSuccess":      true,
		"Message":        "Hub statistics retrieved successfully",
	})
}
