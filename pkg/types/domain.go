package types

import (
	"strings"
	"time"
)

// Role identifies the author of a conversational message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session history. Messages are immutable once appended.
type Message struct {
	// Author of the message.
	// example: user
	Role Role `json:"role" example:"user"`
	// Text content.
	// example: What is the capital of France?
	Content string `json:"content" example:"What is the capital of France?"`
	// Creation time.
	Timestamp time.Time `json:"timestamp"`
}

// Backend is the closed set of generation backends a turn can be routed to.
type Backend string

const (
	BackendLocal    Backend = "local"
	BackendClaude   Backend = "claude"
	BackendOpenAI   Backend = "openai"
	BackendDeepSeek Backend = "deepseek"
)

// Backends lists every known backend in routing order.
var Backends = []Backend{BackendLocal, BackendClaude, BackendOpenAI, BackendDeepSeek}

// ParseBackend maps a provider string to a Backend. "ollama" is accepted as an
// alias of the local runtime.
func ParseBackend(s string) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "ollama":
		return BackendLocal, true
	case "claude", "anthropic":
		return BackendClaude, true
	case "openai":
		return BackendOpenAI, true
	case "deepseek":
		return BackendDeepSeek, true
	default:
		return Backend(s), false
	}
}

// IsRemote reports whether the backend is a remote API provider.
func (b Backend) IsRemote() bool {
	return b == BackendClaude || b == BackendOpenAI || b == BackendDeepSeek
}

// ModelIdentity selects a backend and, for the local runtime, the model to run.
type ModelIdentity struct {
	Name    string  `json:"name"`
	Backend Backend `json:"backend"`
}

// RuntimeStatus is the operational state of the local inference runtime.
type RuntimeStatus string

const (
	RuntimeUnknown  RuntimeStatus = "unknown"
	RuntimeDown     RuntimeStatus = "down"
	RuntimeStarting RuntimeStatus = "starting"
	RuntimeUp       RuntimeStatus = "up"
)

// StreamChunk is one incremental fragment of a streamed reply.
type StreamChunk struct {
	// example: Hello
	Text string `json:"text" example:"Hello"`
	// True on the final chunk of a stream.
	Done bool `json:"done" example:"false"`
}

// CatalogModel describes a known model, local or online.
type CatalogModel struct {
	// example: llama3.2
	Name        string   `json:"name" yaml:"name" toml:"name" example:"llama3.2"`
	Description string   `json:"description,omitempty" yaml:"description" toml:"description"`
	Size        string   `json:"size,omitempty" yaml:"size" toml:"size"`
	Provider    string   `json:"provider,omitempty" yaml:"provider" toml:"provider"`
	UseCases    []string `json:"use_case,omitempty" yaml:"use_case" toml:"use_case"`
}
