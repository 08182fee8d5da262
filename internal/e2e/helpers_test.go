package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
	"chatd/internal/manager/managertest"
	"chatd/pkg/types"
)

// stack is a running server over a fake runtime.
type stack struct {
	fake *managertest.Server
	srv  *httptest.Server
	eng  *engine.Engine
}

// newStack wires a fake runtime, the engine and the HTTP mux.
func newStack(t *testing.T, mutate ...func(*config.Config)) *stack {
	t.Helper()
	fake := managertest.New(t)
	cfg := config.Default()
	cfg.Ollama.Host = fake.URL
	for _, f := range mutate {
		f(&cfg)
	}
	eng := engine.New(cfg, nil, engine.Options{
		Launcher: manager.LauncherFunc(func(context.Context) error {
			return errors.New("launch disabled in tests")
		}),
	})
	srv := httptest.NewServer(httpapi.NewMux(eng))
	t.Cleanup(srv.Close)
	return &stack{fake: fake, srv: srv, eng: eng}
}

func (s *stack) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(s.srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *stack) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (s *stack) chat(t *testing.T, req types.ChatRequest) types.ChatResponse {
	t.Helper()
	resp := s.postJSON(t, "/chat", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/chat status=%d", resp.StatusCode)
	}
	var out types.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

// readNDJSON decodes every StreamChunk line of body.
func readNDJSON(t *testing.T, resp *http.Response) []types.StreamChunk {
	t.Helper()
	var out []types.StreamChunk
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var c types.StreamChunk
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		out = append(out, c)
	}
	return out
}
