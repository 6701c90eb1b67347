package approuters

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photochat/internal/configuration"
	"photochat/internal/handler"
	"photochat/internal/hub"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorHandler := handler.NewMonitorHandler(hub.NewMonitorService(container.Hub))

	monitorGroup := router.Group("/cf/api/monitor")
	{
		monitorGroup.GET("/stats", monitorHandler.GetHubStats)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(container.Metrics, promhttp.HandlerOpts{})))
}
