package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"photochat/internal/model"
)

type fixedStats model.MonitorResponse

func (f fixedStats) GetStats() model.MonitorResponse { return model.MonitorResponse(f) }

func TestGetHubStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stats := fixedStats{
		Status:      "healthy",
		Connections: model.ConnectionStats{TotalConnected: 1, TotalOnline: 1, TotalStreaming: 1},
		Clients:     []model.ClientInfo{{ClientID: "c-1", UserID: 7, State: "streaming", Online: true}},
	}

	router := gin.New()
	router.GET("/cf/api/monitor/stats", NewMonitorHandler(stats).GetHubStats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cf/api/monitor/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		IsSuccess    bool
		ResponseBody model.MonitorResponse
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.IsSuccess)
	require.Equal(t, model.MonitorResponse(stats), body.ResponseBody)
}
