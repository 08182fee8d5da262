package provider

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"chatd/pkg/types"
)

const (
	openAIBaseURL   = "https://api.openai.com"
	openAIModel     = "gpt-4"
	deepSeekBaseURL = "https://api.deepseek.com"
	deepSeekModel   = "deepseek-chat"
)

// ChatCompletions calls an OpenAI-compatible /v1/chat/completions endpoint.
// OpenAI and DeepSeek share this adapter.
type ChatCompletions struct {
	backend types.Backend
	cfg     Config
	log     zerolog.Logger
}

// NewOpenAI returns an adapter for the OpenAI API.
func NewOpenAI(cfg Config) *ChatCompletions {
	return newChatCompletions(types.BackendOpenAI, cfg.withDefaults(openAIBaseURL, openAIModel))
}

// NewDeepSeek returns an adapter for the DeepSeek API.
func NewDeepSeek(cfg Config) *ChatCompletions {
	return newChatCompletions(types.BackendDeepSeek, cfg.withDefaults(deepSeekBaseURL, deepSeekModel))
}

func newChatCompletions(b types.Backend, cfg Config) *ChatCompletions {
	return &ChatCompletions{backend: b, cfg: cfg, log: loggerFor(cfg, b)}
}

func (c *ChatCompletions) Backend() types.Backend { return c.backend }

type chatCompletionsRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

func (c *ChatCompletions) Complete(ctx context.Context, message string, history []types.Message, apiKey string) string {
	if apiKey == "" {
		return NotConfigured(c.backend)
	}
	msgs := []chatMessage{{Role: "system", Content: c.cfg.SystemPrompt}}
	msgs = append(msgs, windowTurns(history)...)
	msgs = append(msgs, chatMessage{Role: string(types.RoleUser), Content: message})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	code, body, err := postJSON(ctx, c.cfg.HTTPClient, c.cfg.BaseURL+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + apiKey,
	}, chatCompletionsRequest{Model: c.cfg.Model, Messages: msgs, MaxTokens: c.cfg.MaxTokens})
	if err != nil {
		c.log.Error().Err(err).Str("event", "request_failed").Msg("chat completions request")
		return ProcessingError(c.backend, err)
	}
	if code != 200 {
		c.log.Warn().Int("status", code).Str("body", string(body)).Str("event", "api_error").Msg("chat completions response")
		return APIError(c.backend, code)
	}
	text := gjson.GetBytes(body, "choices.0.message.content")
	if !text.Exists() {
		return ProcessingError(c.backend, errors.New("response has no choices"))
	}
	return text.String()
}
