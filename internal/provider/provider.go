// Package provider adapts remote chat APIs (Claude, OpenAI, DeepSeek) to a
// single stateless contract: text in, text out. Adapters never return errors;
// failures come back as descriptive text.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/prompt"
	"chatd/pkg/types"
)

// Adapter completes one conversational turn against a remote provider.
type Adapter interface {
	Backend() types.Backend
	// Complete returns the provider's reply to message given the prior
	// history. A missing apiKey yields a "not configured" sentence.
	Complete(ctx context.Context, message string, history []types.Message, apiKey string) string
}

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxTokens = 2000
	defaultTimeout   = 120 * time.Second
	maxErrBody       = 4096
	// DefaultSystemPrompt is sent to chat-style providers as the system turn.
	DefaultSystemPrompt = "You are JARVIS, an advanced AI assistant."
)

// Config holds per-provider tunables.
type Config struct {
	BaseURL      string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

func (c Config) withDefaults(baseURL, model string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.HTTPClient == nil {
		c.HTTPClient = newHTTPClient()
	}
	return c
}

func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	// Timeout=0: deadlines come from the request context.
	return &http.Client{Transport: tr, Timeout: 0}
}

func loggerFor(c Config, b types.Backend) zerolog.Logger {
	l := zerolog.Nop()
	if c.Logger != nil {
		l = *c.Logger
	}
	return l.With().Str("component", "provider").Str("provider", string(b)).Logger()
}

// DisplayName is the human-readable provider name used in reply text.
func DisplayName(b types.Backend) string {
	switch b {
	case types.BackendClaude:
		return "Claude"
	case types.BackendOpenAI:
		return "OpenAI"
	case types.BackendDeepSeek:
		return "DeepSeek"
	default:
		return string(b)
	}
}

// NotConfigured is the reply given when a provider has no API key.
func NotConfigured(b types.Backend) string { return DisplayName(b) + " API key not configured" }

// APIError is the reply given for a non-2xx provider response.
func APIError(b types.Backend, code int) string {
	return DisplayName(b) + " API error: " + strconv.Itoa(code)
}

// ProcessingError is the reply given when a call fails before a response.
func ProcessingError(b types.Backend, err error) string {
	return "Error processing with " + string(b) + ": " + err.Error()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// windowTurns renders the last prompt.DefaultWindow history messages as
// structured chat turns.
func windowTurns(history []types.Message) []chatMessage {
	w := prompt.Window(history, prompt.DefaultWindow)
	out := make([]chatMessage, 0, len(w)+1)
	for _, m := range w {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// postJSON sends body to url and returns the status and (bounded) response body.
func postJSON(ctx context.Context, cli *http.Client, url string, headers map[string]string, body any) (int, []byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := cli.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return resp.StatusCode, rb, nil
	}
	rb, err := io.ReadAll(resp.Body)
	return resp.StatusCode, rb, err
}
