package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"` // Live connection stats
	Clients     []ClientInfo    `json:"clients"`     // List of connected clients
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"` // Users with a registered live connection
	TotalOnline    int `json:"totalOnline"`    // Of those, users whose liveness flag has not expired
	TotalStreaming int `json:"totalStreaming"` // Sessions currently in the streaming state
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID    string `json:"clientId"`
	UserID      int64  `json:"userId"`
	State       string `json:"state"`
	ConnectedAt string `json:"connectedAt"` // ISO timestamp
	Online      bool   `json:"online"`
}
