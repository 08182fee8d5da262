// Package engine wires the session store, runtime manager, remote providers
// and dispatcher into the service the HTTP layer and CLI drive.
package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/config"
	"chatd/internal/dispatch"
	"chatd/internal/manager"
	"chatd/internal/provider"
	"chatd/internal/registry"
	"chatd/internal/session"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

// defaultOnlineProvider serves online turns that do not name a provider.
const defaultOnlineProvider = types.BackendClaude

// Options carries collaborators that are not part of the file configuration.
type Options struct {
	// Launcher overrides how the runtime is started (tests).
	Launcher  manager.Launcher
	Publisher manager.EventPublisher
	// HTTPClient overrides the transport used by remote providers (tests).
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Engine implements the chat service.
type Engine struct {
	store    *session.Store
	mgr      *manager.Manager
	catalog  *registry.Catalog
	dispatch *dispatch.Dispatcher
	log      zerolog.Logger
}

// New builds an Engine from cfg. A nil catalog uses the built-in one.
func New(cfg config.Config, catalog *registry.Catalog, opts Options) *Engine {
	if catalog == nil {
		catalog = registry.Default()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	b := cfg.Behavior
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Host:           cfg.Ollama.Host,
		Binary:         cfg.Ollama.Binary,
		ProbeTimeout:   config.Seconds(cfg.Ollama.ProbeTimeoutSeconds),
		RequestTimeout: config.Seconds(cfg.Ollama.TimeoutSeconds),
		PullTimeout:    config.Seconds(cfg.Ollama.PullTimeoutSeconds),
		StartGrace:     config.Seconds(cfg.Ollama.StartGraceSeconds),
		DefaultModel:   b.DefaultModel,
		Params: manager.InferParams{
			Temperature: b.Temperature,
			TopP:        b.TopP,
			TopK:        b.TopK,
			MaxTokens:   b.MaxTokens,
		},
		Preferences: catalog.Preferences,
		Launcher:    opts.Launcher,
		Publisher:   opts.Publisher,
		Logger:      &logger,
	})

	p := cfg.Providers
	providerCfg := func(pc config.ProviderConfig) provider.Config {
		return provider.Config{
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			MaxTokens:  pc.MaxTokens,
			Timeout:    config.Seconds(pc.TimeoutSeconds),
			HTTPClient: opts.HTTPClient,
			Logger:     &logger,
		}
	}

	store := session.NewStore(b.SessionMaxMessages)
	d := dispatch.New(dispatch.Config{
		Store:   store,
		Runtime: mgr,
		Adapters: []provider.Adapter{
			provider.NewClaude(providerCfg(p.Claude)),
			provider.NewOpenAI(providerCfg(p.OpenAI)),
			provider.NewDeepSeek(providerCfg(p.DeepSeek)),
		},
		Keys: map[types.Backend]string{
			types.BackendClaude:   p.Claude.APIKey,
			types.BackendOpenAI:   p.OpenAI.APIKey,
			types.BackendDeepSeek: p.DeepSeek.APIKey,
		},
		Preamble: b.SystemPreamble,
		Logger:   &logger,
	})

	return &Engine{
		store:    store,
		mgr:      mgr,
		catalog:  catalog,
		dispatch: d,
		log:      logger.With().Str("component", "engine").Logger(),
	}
}

// Manager exposes the runtime manager (CLI commands, health monitor).
func (e *Engine) Manager() *manager.Manager { return e.mgr }

// Store exposes the session store.
func (e *Engine) Store() *session.Store { return e.store }

// turn maps a request onto a dispatcher turn. A local turn with a task but
// no model gets the best installed model for the task.
func (e *Engine) turn(ctx context.Context, req types.ChatRequest) dispatch.Turn {
	t := dispatch.Turn{SessionID: req.SessionID, Message: req.Message, Online: req.UseOnline}
	if req.UseOnline {
		name := req.OnlineProvider
		if strings.TrimSpace(name) == "" {
			name = string(defaultOnlineProvider)
		}
		backend, _ := types.ParseBackend(name)
		t.Target = types.ModelIdentity{Backend: backend}
		return t
	}
	model := strings.TrimSpace(req.Model)
	if model == "" && strings.TrimSpace(req.Task) != "" {
		model = e.mgr.BestModelForTask(ctx, req.Task)
		e.log.Debug().Str("event", "task_model").Str("task", req.Task).Str("model", model).Msg("model chosen for task")
	}
	t.Target = types.ModelIdentity{Name: model, Backend: types.BackendLocal}
	return t
}

// Chat runs one turn to completion.
func (e *Engine) Chat(ctx context.Context, req types.ChatRequest) types.ChatResponse {
	r := e.dispatch.HandleTurn(ctx, e.turn(ctx, req))
	return types.ChatResponse{
		Response:  r.Text,
		SessionID: r.SessionID,
		ModelUsed: r.Model,
		Timestamp: r.Timestamp.Format(time.RFC3339),
	}
}

// ChatStream runs one turn and streams the reply.
func (e *Engine) ChatStream(ctx context.Context, req types.ChatRequest) (string, *stream.Stream) {
	return e.dispatch.HandleTurnStream(ctx, e.turn(ctx, req))
}

// Health probes the runtime without starting it.
func (e *Engine) Health(ctx context.Context) types.HealthResponse {
	running := e.mgr.HealthCheck(ctx)
	models := []string{}
	if running {
		models = e.mgr.ListModels(ctx)
	}
	return types.HealthResponse{
		Status:          "healthy",
		OllamaRunning:   running,
		RuntimeStatus:   e.mgr.RuntimeStatus(),
		CurrentModel:    e.mgr.CurrentModel(),
		AvailableModels: models,
	}
}

// Status reports manager state and the number of live sessions.
func (e *Engine) Status() types.StatusResponse {
	s := e.mgr.Status()
	s.Sessions = e.store.Count()
	return s
}

// Ready reports whether the runtime was last seen up.
func (e *Engine) Ready() bool { return e.mgr.Ready() }

// Models lists installed local models and the online catalog.
func (e *Engine) Models(ctx context.Context) types.ModelsResponse {
	return types.ModelsResponse{
		LocalModels:  e.mgr.ListModels(ctx),
		OnlineModels: e.catalog.OnlineModels(),
		CurrentModel: e.mgr.CurrentModel(),
	}
}

// SwitchModel changes the current local model. Remote providers are
// stateless per turn, so switching to one only validates the name.
func (e *Engine) SwitchModel(ctx context.Context, req types.ModelSwitchRequest) (types.ModelSwitchResponse, error) {
	name := req.Provider
	if strings.TrimSpace(name) == "" {
		name = "ollama"
	}
	backend, ok := types.ParseBackend(name)
	if !ok {
		return types.ModelSwitchResponse{}, badRequest("unknown provider " + name)
	}
	if backend.IsRemote() {
		return types.ModelSwitchResponse{Success: true, CurrentModel: req.ModelName, Provider: name}, nil
	}
	if !e.mgr.SwitchModel(ctx, req.ModelName) {
		return types.ModelSwitchResponse{}, badRequest("Failed to switch model")
	}
	return types.ModelSwitchResponse{Success: true, CurrentModel: e.mgr.CurrentModel(), Provider: name}, nil
}

// PullModel downloads a model onto the runtime.
func (e *Engine) PullModel(ctx context.Context, name string) error {
	if !e.mgr.PullModel(ctx, name) {
		return badRequest("Failed to pull model")
	}
	return nil
}

// DeleteModel removes a model from the runtime.
func (e *Engine) DeleteModel(ctx context.Context, name string) error {
	if e.mgr.DeleteModel(ctx, name) {
		return nil
	}
	if !e.mgr.Ready() {
		return unavailable()
	}
	return badRequest("Failed to delete model")
}

// ModelInfo returns the runtime's description of a model.
func (e *Engine) ModelInfo(ctx context.Context, name string) (json.RawMessage, error) {
	if info, ok := e.mgr.ShowModel(ctx, name); ok {
		return info, nil
	}
	if !e.mgr.Ready() {
		return nil, unavailable()
	}
	return nil, notFound("model not found: " + name)
}

// Session returns the history of id. Unknown ids have no messages.
func (e *Engine) Session(id string) types.SessionResponse {
	return types.SessionResponse{SessionID: id, Messages: e.store.History(id)}
}

// ClearSession forgets id.
func (e *Engine) ClearSession(id string) {
	e.store.Clear(id)
	e.log.Debug().Str("event", "session_cleared").Str("session", id).Msg("session cleared")
}
