package wsserver

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// StatsResponse reports the connections held by this process.
type StatsResponse struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// TypingTriggerResponse is returned after the admin endpoint publishes a typing event.
type TypingTriggerResponse struct {
	Status string `json:"status"`
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
	Type   string `json:"type"`
}
