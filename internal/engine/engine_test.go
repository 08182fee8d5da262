package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/internal/config"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
	"chatd/internal/manager/managertest"
	"chatd/internal/registry"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

var _ httpapi.Service = (*Engine)(nil)

func newTestEngine(t *testing.T, fake *managertest.Server, mutate ...func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Ollama.Host = fake.URL
	for _, f := range mutate {
		f(&cfg)
	}
	return New(cfg, nil, Options{
		Launcher: manager.LauncherFunc(func(context.Context) error {
			return errors.New("launch disabled in tests")
		}),
	})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestChatLocalRecordsBothTurns(t *testing.T) {
	fake := managertest.New(t)
	fake.SetGenerate(http.StatusOK, "Paris.")
	e := newTestEngine(t, fake)

	resp := e.Chat(testCtx(t), types.ChatRequest{Message: "Capital of France?"})
	assert.Equal(t, "Paris.", resp.Response)
	assert.Equal(t, "llama3.2", resp.ModelUsed)
	require.NotEmpty(t, resp.SessionID)
	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	require.NoError(t, err)

	h := e.Session(resp.SessionID).Messages
	require.Len(t, h, 2)
	assert.Equal(t, types.RoleUser, h[0].Role)
	assert.Equal(t, "Paris.", h[1].Content)

	gens := fake.Generates()
	require.Len(t, gens, 1)
	assert.Contains(t, gens[0].Prompt, "User: Capital of France?\nAssistant: ")
	assert.EqualValues(t, config.DefaultTopK, gens[0].Options["top_k"])
}

func TestChatPassesConfiguredZeroTemperature(t *testing.T) {
	fake := managertest.New(t)
	fake.SetGenerate(http.StatusOK, "ok")
	e := newTestEngine(t, fake, func(c *config.Config) { c.Behavior.Temperature = manager.Float(0) })

	e.Chat(testCtx(t), types.ChatRequest{Message: "hi"})
	gens := fake.Generates()
	require.Len(t, gens, 1)
	assert.EqualValues(t, 0, gens[0].Options["temperature"])
}

func TestChatTaskPicksInstalledPreference(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2", "codellama")
	e := newTestEngine(t, fake)

	resp := e.Chat(testCtx(t), types.ChatRequest{Message: "write a loop", Task: "coding"})
	assert.Equal(t, "codellama", resp.ModelUsed)
	gens := fake.Generates()
	require.Len(t, gens, 1)
	assert.Equal(t, "codellama", gens[0].Model)
}

func TestChatOnlineProvider(t *testing.T) {
	fake := managertest.New(t)
	var gotKey string
	claude := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"Bonjour"}]}`)
	}))
	defer claude.Close()

	e := newTestEngine(t, fake, func(c *config.Config) {
		c.Providers.Claude.APIKey = "sk-test"
		c.Providers.Claude.BaseURL = claude.URL
	})
	resp := e.Chat(testCtx(t), types.ChatRequest{Message: "hi", UseOnline: true})
	assert.Equal(t, "Bonjour", resp.Response)
	assert.Equal(t, "claude", resp.ModelUsed)
	assert.Equal(t, "sk-test", gotKey)
	assert.Zero(t, fake.Calls("/api/generate"))

	resp = e.Chat(testCtx(t), types.ChatRequest{Message: "hi", UseOnline: true, OnlineProvider: "openai", SessionID: resp.SessionID})
	assert.Equal(t, "OpenAI API key not configured", resp.Response)
	assert.Len(t, e.Session(resp.SessionID).Messages, 4)
}

func TestChatStreamRecordsReply(t *testing.T) {
	fake := managertest.New(t)
	fake.SetStream(false,
		`{"response":"Hel","done":false}`,
		`{"response":"lo","done":false}`,
		`{"response":"","done":true}`,
	)
	e := newTestEngine(t, fake)

	id, s := e.ChatStream(testCtx(t), types.ChatRequest{Message: "hi"})
	text := stream.Collect(s)
	assert.Equal(t, "Hello", text)

	h := e.Session(id).Messages
	require.Len(t, h, 2)
	assert.Equal(t, "Hello", h[1].Content)
}

func TestHealthDoesNotStartRuntime(t *testing.T) {
	fake := managertest.New(t)
	fake.SetDown(true)
	e := newTestEngine(t, fake)

	h := e.Health(testCtx(t))
	assert.Equal(t, "healthy", h.Status)
	assert.False(t, h.OllamaRunning)
	assert.Equal(t, types.RuntimeDown, h.RuntimeStatus)
	assert.Empty(t, h.AvailableModels)
	assert.Zero(t, fake.Calls("/api/tags"))
	assert.False(t, e.Ready())

	fake.SetDown(false)
	fake.SetModels("llama3.2")
	h = e.Health(testCtx(t))
	assert.True(t, h.OllamaRunning)
	assert.Equal(t, []string{"llama3.2"}, h.AvailableModels)
	assert.True(t, e.Ready())
}

func TestStatusCountsSessions(t *testing.T) {
	fake := managertest.New(t)
	e := newTestEngine(t, fake)
	e.Chat(testCtx(t), types.ChatRequest{Message: "a"})
	e.Chat(testCtx(t), types.ChatRequest{Message: "b"})
	s := e.Status()
	assert.Equal(t, 2, s.Sessions)
	assert.Equal(t, "llama3.2", s.CurrentModel)
}

func TestModelsIncludesCatalog(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2", "mistral:7b")
	e := newTestEngine(t, fake)
	m := e.Models(testCtx(t))
	assert.Equal(t, []string{"llama3.2", "mistral:7b"}, m.LocalModels)
	assert.Equal(t, registry.Default().OnlineModels(), m.OnlineModels)
	assert.Equal(t, "llama3.2", m.CurrentModel)
}

func statusCode(t *testing.T, err error) int {
	t.Helper()
	var he httpapi.HTTPError
	require.True(t, errors.As(err, &he), "error %v has no status", err)
	return he.StatusCode()
}

func TestSwitchModel(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2", "mistral:7b")
	e := newTestEngine(t, fake)
	ctx := testCtx(t)

	resp, err := e.SwitchModel(ctx, types.ModelSwitchRequest{ModelName: "mistral:7b"})
	require.NoError(t, err)
	assert.Equal(t, "mistral:7b", resp.CurrentModel)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "mistral:7b", e.Manager().CurrentModel())

	resp, err = e.SwitchModel(ctx, types.ModelSwitchRequest{ModelName: "gpt-4", Provider: "openai"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "mistral:7b", e.Manager().CurrentModel())

	_, err = e.SwitchModel(ctx, types.ModelSwitchRequest{ModelName: "x", Provider: "bard"})
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))

	fake.SetPull(http.StatusInternalServerError)
	_, err = e.SwitchModel(ctx, types.ModelSwitchRequest{ModelName: "missing:1b", Provider: "ollama"})
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))
	assert.Equal(t, "mistral:7b", e.Manager().CurrentModel())
}

func TestModelOperations(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2")
	e := newTestEngine(t, fake)
	ctx := testCtx(t)

	fake.SetPull(0, `{"status":"pulling manifest"}`, `{"status":"success"}`)
	require.NoError(t, e.PullModel(ctx, "phi3:mini"))
	assert.Contains(t, fake.Models(), "phi3:mini")

	fake.SetPull(0, `{"status":"pulling manifest"}`)
	assert.Equal(t, http.StatusBadRequest, statusCode(t, e.PullModel(ctx, "nope")))

	require.NoError(t, e.DeleteModel(ctx, "phi3:mini"))
	fake.SetDeleteStatus(http.StatusNotFound)
	assert.Equal(t, http.StatusBadRequest, statusCode(t, e.DeleteModel(ctx, "phi3:mini")))

	fake.SetShow(`{"modelfile":"FROM llama3.2"}`)
	info, err := e.ModelInfo(ctx, "llama3.2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"modelfile":"FROM llama3.2"}`, string(info))

	fake.SetShow("")
	_, err = e.ModelInfo(ctx, "ghost")
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	fake.SetDown(true)
	_, err = e.ModelInfo(ctx, "llama3.2")
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(t, err))
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(t, e.DeleteModel(ctx, "llama3.2")))
}

func TestClearSession(t *testing.T) {
	fake := managertest.New(t)
	e := newTestEngine(t, fake)
	resp := e.Chat(testCtx(t), types.ChatRequest{Message: "hi", SessionID: "s1"})
	require.Equal(t, "s1", resp.SessionID)
	e.ClearSession("s1")
	assert.Empty(t, e.Session("s1").Messages)
	assert.Equal(t, 0, e.Status().Sessions)
}

func TestSessionMaxMessagesFromConfig(t *testing.T) {
	fake := managertest.New(t)
	e := newTestEngine(t, fake, func(c *config.Config) { c.Behavior.SessionMaxMessages = 4 })
	for i := 0; i < 5; i++ {
		e.Chat(testCtx(t), types.ChatRequest{Message: "m", SessionID: "capped"})
	}
	assert.Len(t, e.Session("capped").Messages, 4)
}
