package api

// --- Data Structures for WebSocket Messages ---

// CommandMsg is a scene command sent over the command websocket.
type CommandMsg struct {
	Command string `json:"command"`
}

// AckMsg acknowledges a websocket command.
type AckMsg struct {
	Status  string `json:"status"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}
