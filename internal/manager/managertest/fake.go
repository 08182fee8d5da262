// Package managertest provides an in-process fake of the Ollama HTTP API for
// tests of the manager and the layers above it.
package managertest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
)

// GenerateRequest is the body the fake received on /api/generate.
type GenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

// Server is a scripted Ollama runtime. Zero-valued fields give a healthy
// runtime with no models whose generations reply "ok".
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	down  bool
	calls map[string]int

	models []string
	// PullLines are written as the /api/pull body, one per line.
	pullLines  []string
	pullStatus int
	// pullAdds is appended to models after a pull that wrote a success line.
	pullAdds bool

	genText   string
	genStatus int
	genLines  []string
	holdOpen  bool
	generates []GenerateRequest

	showBody   string
	deleteCode int
}

// New starts a fake runtime and closes it on test cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{calls: make(map[string]int), genText: "ok", pullAdds: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/tags", s.handleTags)
	mux.HandleFunc("/api/pull", s.handlePull)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/show", s.handleShow)
	mux.HandleFunc("/api/delete", s.handleDelete)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// SetDown makes /api/version fail (true) or succeed (false).
func (s *Server) SetDown(down bool) { s.mu.Lock(); s.down = down; s.mu.Unlock() }

// SetModels replaces the installed model list.
func (s *Server) SetModels(names ...string) { s.mu.Lock(); s.models = names; s.mu.Unlock() }

// Models returns the installed model list.
func (s *Server) Models() []string { s.mu.Lock(); defer s.mu.Unlock(); return slices.Clone(s.models) }

// SetPull scripts the /api/pull response. A status of 0 means 200.
func (s *Server) SetPull(status int, lines ...string) {
	s.mu.Lock()
	s.pullStatus, s.pullLines = status, lines
	s.mu.Unlock()
}

// SetGenerate scripts the non-streaming /api/generate reply.
func (s *Server) SetGenerate(status int, text string) {
	s.mu.Lock()
	s.genStatus, s.genText = status, text
	s.mu.Unlock()
}

// SetStream scripts the streaming /api/generate body. When hold is true the
// handler keeps the response open after the lines until the client leaves.
func (s *Server) SetStream(hold bool, lines ...string) {
	s.mu.Lock()
	s.genLines, s.holdOpen = lines, hold
	s.mu.Unlock()
}

// SetShow sets the /api/show body; empty answers 404.
func (s *Server) SetShow(body string) { s.mu.Lock(); s.showBody = body; s.mu.Unlock() }

// SetDeleteStatus sets the /api/delete status code; 0 means 200.
func (s *Server) SetDeleteStatus(code int) { s.mu.Lock(); s.deleteCode = code; s.mu.Unlock() }

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int { s.mu.Lock(); defer s.mu.Unlock(); return s.calls[path] }

// Generates returns the bodies received on /api/generate.
func (s *Server) Generates() []GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.generates)
}

func (s *Server) hit(r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.mu.Unlock()
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.hit(r)
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		http.Error(w, "down", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"version": "0.0.0-fake"})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.hit(r)
	type model struct {
		Name string `json:"name"`
	}
	out := struct {
		Models []model `json:"models"`
	}{Models: []model{}}
	for _, n := range s.Models() {
		out.Models = append(out.Models, model{Name: n})
	}
	writeJSON(w, out)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	s.hit(r)
	var req struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	status, lines, adds := s.pullStatus, slices.Clone(s.pullLines), s.pullAdds
	s.mu.Unlock()
	if status != 0 && status != http.StatusOK {
		http.Error(w, "pull failed", status)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	succeeded := false
	for _, l := range lines {
		_, _ = io.WriteString(w, l+"\n")
		flush(w)
		var pl struct {
			Status string `json:"status"`
		}
		if json.Unmarshal([]byte(l), &pl) == nil && pl.Status == "success" {
			succeeded = true
		}
	}
	if succeeded && adds {
		s.mu.Lock()
		if !slices.Contains(s.models, req.Name) {
			s.models = append(s.models, req.Name)
		}
		s.mu.Unlock()
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.hit(r)
	var req GenerateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	s.generates = append(s.generates, req)
	status, text := s.genStatus, s.genText
	lines, hold := slices.Clone(s.genLines), s.holdOpen
	s.mu.Unlock()
	if status != 0 && status != http.StatusOK {
		http.Error(w, "generate failed", status)
		return
	}
	if !req.Stream {
		writeJSON(w, map[string]any{"model": req.Model, "response": text, "done": true})
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, l := range lines {
		_, _ = io.WriteString(w, l+"\n")
		flush(w)
	}
	if hold {
		<-r.Context().Done()
	}
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	s.hit(r)
	s.mu.Lock()
	body := s.showBody
	s.mu.Unlock()
	if body == "" {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.hit(r)
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	code := s.deleteCode
	if code == 0 || code == http.StatusOK {
		s.models = slices.DeleteFunc(s.models, func(n string) bool { return n == req.Name })
	}
	s.mu.Unlock()
	if code != 0 {
		w.WriteHeader(code)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
