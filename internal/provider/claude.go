package provider

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"chatd/pkg/types"
)

const (
	claudeBaseURL    = "https://api.anthropic.com"
	claudeModel      = "claude-3-sonnet-20240229"
	anthropicVersion = "2023-06-01"
)

// Claude calls the Anthropic Messages API.
type Claude struct {
	cfg Config
	log zerolog.Logger
}

// NewClaude returns a Claude adapter.
func NewClaude(cfg Config) *Claude {
	cfg = cfg.withDefaults(claudeBaseURL, claudeModel)
	return &Claude{cfg: cfg, log: loggerFor(cfg, types.BackendClaude)}
}

func (c *Claude) Backend() types.Backend { return types.BackendClaude }

type claudeRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

func (c *Claude) Complete(ctx context.Context, message string, history []types.Message, apiKey string) string {
	if apiKey == "" {
		return NotConfigured(types.BackendClaude)
	}
	turns := windowTurns(history)
	// The Messages API requires the conversation to open with a user turn.
	for len(turns) > 0 && turns[0].Role != string(types.RoleUser) {
		turns = turns[1:]
	}
	turns = append(turns, chatMessage{Role: string(types.RoleUser), Content: message})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	code, body, err := postJSON(ctx, c.cfg.HTTPClient, c.cfg.BaseURL+"/v1/messages", map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
	}, claudeRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    c.cfg.SystemPrompt,
		Messages:  turns,
	})
	if err != nil {
		c.log.Error().Err(err).Str("event", "request_failed").Msg("claude request")
		return ProcessingError(types.BackendClaude, err)
	}
	if code != 200 {
		c.log.Warn().Int("status", code).Str("body", string(body)).Str("event", "api_error").Msg("claude response")
		return APIError(types.BackendClaude, code)
	}
	text := gjson.GetBytes(body, "content.0.text")
	if !text.Exists() {
		return ProcessingError(types.BackendClaude, errors.New("response has no content"))
	}
	return text.String()
}
