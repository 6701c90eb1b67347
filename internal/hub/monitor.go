package hub

import (
	"cmp"
	"slices"
	"time"

	"photochat/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	clients := ms.getClientList()

	stats := model.ConnectionStats{TotalConnected: len(clients)}
	for _, client := range clients {
		if client.Online {
			stats.TotalOnline++
		}
		if client.State == StateStreaming.String() {
			stats.TotalStreaming++
		}
	}

	status := "healthy"
	if stats.TotalConnected == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: stats,
		Clients:     clients,
	}
}

// getClientList returns the registered clients ordered by user id
func (ms *MonitorService) getClientList() []model.ClientInfo {
	snapshot := ms.hub.registry.Snapshot()
	clients := make([]model.ClientInfo, 0, len(snapshot))

	for userID, conn := range snapshot {
		info := model.ClientInfo{
			UserID: userID,
			Online: ms.hub.online.IsOnline(userID),
		}
		if c, ok := conn.(*Client); ok {
			info.ClientID = c.ID
			info.State = c.State().String()
			info.ConnectedAt = c.ConnectedAt.Format(time.RFC3339)
		}
		clients = append(clients, info)
	}

	slices.SortFunc(clients, func(a, b model.ClientInfo) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return clients
}
