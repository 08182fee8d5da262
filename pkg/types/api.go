package types

// ChatRequest is the payload of POST /chat and POST /chat/stream.
type ChatRequest struct {
	// Required user message.
	// example: Write a haiku about the ocean.
	Message string `json:"message" example:"Write a haiku about the ocean."`
	// Local model name. Empty selects the current model.
	// example: llama3.2
	Model string `json:"model,omitempty" example:"llama3.2"`
	// Route the turn to a remote provider instead of the local runtime.
	// example: false
	UseOnline bool `json:"use_online,omitempty" example:"false"`
	// Remote provider: claude, openai or deepseek.
	// example: claude
	OnlineProvider string `json:"online_provider,omitempty" example:"claude"`
	// Existing session id. Empty starts a new session.
	// example: 7f1c2c4e-5c8e-4a4f-9d1b-0d6f1c9e2a11
	SessionID string `json:"session_id,omitempty" example:"7f1c2c4e-5c8e-4a4f-9d1b-0d6f1c9e2a11"`
	// Optional task hint (coding, analysis, ...) used to pick a local model when Model is empty.
	// example: coding
	Task string `json:"task,omitempty" example:"coding"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	// Assistant reply. Failures are reported here as text.
	Response string `json:"response"`
	// Session the turn was recorded in.
	SessionID string `json:"session_id"`
	// Model or provider that served the turn.
	// example: llama3.2
	ModelUsed string `json:"model_used" example:"llama3.2"`
	// RFC3339 timestamp of the reply.
	Timestamp string `json:"timestamp"`
}

// ModelSwitchRequest is the payload of POST /models/switch.
type ModelSwitchRequest struct {
	// example: mistral:7b
	ModelName string `json:"model_name" example:"mistral:7b"`
	// example: ollama
	Provider string `json:"provider,omitempty" example:"ollama"`
}

// ModelSwitchResponse reports the outcome of a model switch.
type ModelSwitchResponse struct {
	Success      bool   `json:"success"`
	CurrentModel string `json:"current_model"`
	Provider     string `json:"provider"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	// Models installed on the local runtime.
	LocalModels []string `json:"local_models"`
	// Known online models grouped by provider.
	OnlineModels map[string][]CatalogModel `json:"online_models"`
	// Model used for local turns that do not name one.
	// example: llama3.2
	CurrentModel string `json:"current_model" example:"llama3.2"`
}

// OperationResponse is a generic success payload.
type OperationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SessionResponse is returned by GET /sessions/{id}.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Whether the local runtime answered its version probe.
	OllamaRunning bool `json:"ollama_running"`
	// example: up
	RuntimeStatus RuntimeStatus `json:"runtime_status" example:"up"`
	// example: llama3.2
	CurrentModel    string   `json:"current_model" example:"llama3.2"`
	AvailableModels []string `json:"available_models"`
}

// StatusResponse summarizes the lifecycle manager for diagnostics.
type StatusResponse struct {
	// example: up
	RuntimeStatus RuntimeStatus `json:"runtime_status" example:"up"`
	// example: llama3.2
	CurrentModel string `json:"current_model" example:"llama3.2"`
	// Last inventory observed on the runtime. Advisory only.
	Inventory []string `json:"inventory"`
	// Unix seconds of the last inventory refresh.
	InventoryUnix int64 `json:"inventory_unix,omitempty"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Number of runtime launch attempts.
	// example: 1
	StartAttempts uint64 `json:"start_attempts" example:"1"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Number of sessions held in memory.
	// example: 3
	Sessions int `json:"sessions" example:"3"`
}

// WSInbound is a turn sent over the WebSocket endpoint.
type WSInbound struct {
	Message        string `json:"message"`
	Model          string `json:"model,omitempty"`
	UseOnline      bool   `json:"use_online,omitempty"`
	OnlineProvider string `json:"online_provider,omitempty"`
	Task           string `json:"task,omitempty"`
}

// WSOutbound is a frame written by the WebSocket endpoint.
// Type is "chunk" for partial text and "response" for the completed reply.
type WSOutbound struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}
