// Package httpapi exposes the chat engine over HTTP, NDJSON streaming and
// WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/stream"
	"chatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer. Errors that
// implement HTTPError choose their own status code.
type Service interface {
	Chat(ctx context.Context, req types.ChatRequest) types.ChatResponse
	// ChatStream returns the session id the turn is recorded in and the reply
	// stream. The caller must Close the stream.
	ChatStream(ctx context.Context, req types.ChatRequest) (string, *stream.Stream)
	Health(ctx context.Context) types.HealthResponse
	Status() types.StatusResponse
	Ready() bool
	Models(ctx context.Context) types.ModelsResponse
	SwitchModel(ctx context.Context, req types.ModelSwitchRequest) (types.ModelSwitchResponse, error)
	PullModel(ctx context.Context, name string) error
	DeleteModel(ctx context.Context, name string) error
	ModelInfo(ctx context.Context, name string) (json.RawMessage, error)
	Session(id string) types.SessionResponse
	ClearSession(id string)
}

// SessionHeader carries the session id of a streamed turn.
const SessionHeader = "X-Session-ID"

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{SessionHeader},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}

	r.Post("/chat", h.chat)
	r.Post("/chat/stream", h.chatStream)
	r.Get("/ws/{sessionID}", h.serveWS)

	r.Get("/models", h.models)
	r.Post("/models/switch", h.switchModel)
	r.Post("/models/pull/{name}", h.pullModel)
	r.Delete("/models/{name}", h.deleteModel)
	r.Get("/models/{name}/info", h.modelInfo)

	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Session(chi.URLParam(r, "id")))
	})
	r.Delete("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		svc.ClearSession(chi.URLParam(r, "id"))
		writeJSON(w, http.StatusOK, types.OperationResponse{Success: true, Message: "Session cleared"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Health(r.Context()))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("runtime down"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

type handlers struct {
	svc Service
}

// decodeJSON reads a size-limited JSON body into v. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func decodeChat(w http.ResponseWriter, r *http.Request) (types.ChatRequest, bool) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return req, false
	}
	return req, true
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logTurn(r, lvl, "chat start", req.SessionID, 0, start, nil)

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	resp := h.svc.Chat(ctx, req)
	chatTurnsTotal.WithLabelValues("http").Inc()

	writeJSON(w, http.StatusOK, resp)
	logTurn(r, lvl, "chat end", resp.SessionID, http.StatusOK, start, nil)
}

func (h *handlers) chatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logTurn(r, lvl, "stream start", req.SessionID, 0, start, nil)

	// Shutdown or client disconnect cancels generation.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	id, s := h.svc.ChatStream(ctx, req)
	defer s.Close()
	chatTurnsTotal.WithLabelValues("stream").Inc()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set(SessionHeader, id)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	out := json.NewEncoder(w)
	if lvl >= LevelDebug {
		out = json.NewEncoder(&teeWriter{w: w, log: &loggingLineWriter{}})
	}
	for c := range s.Chunks() {
		if err := out.Encode(c); err != nil {
			logTurn(r, lvl, "stream end", id, http.StatusOK, start, err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	logTurn(r, lvl, "stream end", id, http.StatusOK, start, nil)
}

// teeWriter copies writes to a line logger without letting log errors
// affect the response.
type teeWriter struct {
	w   http.ResponseWriter
	log *loggingLineWriter
}

func (t *teeWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	_, _ = t.log.Write(p[:n])
	return n, err
}

func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Models(r.Context()))
}

func (h *handlers) switchModel(w http.ResponseWriter, r *http.Request) {
	var req types.ModelSwitchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ModelName) == "" {
		writeJSONError(w, http.StatusBadRequest, "model_name is required")
		return
	}
	resp, err := h.svc.SwitchModel(r.Context(), req)
	if err != nil {
		writeJSONError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) pullModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := h.svc.PullModel(ctx, name); err != nil {
		writeJSONError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.OperationResponse{Success: true, Message: "Model " + name + " pulled successfully"})
}

func (h *handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.DeleteModel(r.Context(), name); err != nil {
		writeJSONError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.OperationResponse{Success: true, Message: "Model " + name + " deleted"})
}

func (h *handlers) modelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ModelInfo(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeJSONError(w, statusOf(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(info)
}
