package e2e

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chatd/internal/config"
	"chatd/pkg/types"
)

// A multi-turn conversation keeps history and feeds it back into the prompt.
func TestE2E_ConversationCarriesHistory(t *testing.T) {
	s := newStack(t)
	s.fake.SetGenerate(http.StatusOK, "Paris.")

	first := s.chat(t, types.ChatRequest{Message: "Capital of France?"})
	if first.Response != "Paris." || first.SessionID == "" {
		t.Fatalf("first=%+v", first)
	}
	s.fake.SetGenerate(http.StatusOK, "About 2.1 million.")
	second := s.chat(t, types.ChatRequest{Message: "Population?", SessionID: first.SessionID})
	if second.SessionID != first.SessionID {
		t.Fatalf("session changed: %s -> %s", first.SessionID, second.SessionID)
	}

	gens := s.fake.Generates()
	if len(gens) != 2 {
		t.Fatalf("generates=%d", len(gens))
	}
	p := gens[1].Prompt
	if !strings.HasPrefix(p, "System: ") ||
		!strings.Contains(p, "User: Capital of France?\nAssistant: Paris.\n") ||
		!strings.HasSuffix(p, "User: Population?\nAssistant: ") {
		t.Fatalf("prompt=%q", p)
	}

	var sess types.SessionResponse
	s.get(t, "/sessions/"+first.SessionID, &sess)
	if len(sess.Messages) != 4 || sess.Messages[3].Content != "About 2.1 million." {
		t.Fatalf("session=%+v", sess)
	}
}

func TestE2E_StreamedTurn(t *testing.T) {
	s := newStack(t)
	s.fake.SetStream(false,
		`{"response":"Hel","done":false}`,
		`not json`,
		`{"response":"lo","done":false}`,
		`{"response":"","done":true}`,
	)
	resp := s.postJSON(t, "/chat/stream", types.ChatRequest{Message: "hi", SessionID: "stream-1"})
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Session-ID") != "stream-1" {
		t.Fatalf("status=%d session=%q", resp.StatusCode, resp.Header.Get("X-Session-ID"))
	}
	chunks := readNDJSON(t, resp)
	if len(chunks) != 3 || chunks[0].Text != "Hel" || chunks[1].Text != "lo" || !chunks[2].Done {
		t.Fatalf("chunks=%+v", chunks)
	}

	var sess types.SessionResponse
	s.get(t, "/sessions/stream-1", &sess)
	if len(sess.Messages) != 2 || sess.Messages[1].Content != "Hello" {
		t.Fatalf("session=%+v", sess)
	}
}

func TestE2E_WebSocketTurn(t *testing.T) {
	s := newStack(t)
	s.fake.SetStream(false,
		`{"response":"Bon","done":false}`,
		`{"response":"jour","done":true}`,
	)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/ws-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(types.WSInbound{Message: "Say hello in French"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var last types.WSOutbound
	var chunks int
	for {
		if err := conn.ReadJSON(&last); err != nil {
			t.Fatalf("read: %v", err)
		}
		if last.Type == "response" {
			break
		}
		chunks++
	}
	if chunks != 2 || last.Content != "Bonjour" {
		t.Fatalf("chunks=%d last=%+v", chunks, last)
	}
	if n := s.eng.Store().Len("ws-1"); n != 2 {
		t.Fatalf("history len=%d", n)
	}
}

func TestE2E_RuntimeDownRepliesWithErrorText(t *testing.T) {
	s := newStack(t, func(c *config.Config) { c.Ollama.StartGraceSeconds = 1 })
	s.fake.SetDown(true)

	got := s.chat(t, types.ChatRequest{Message: "hi"})
	if got.Response != "Error: Ollama service is not available" {
		t.Fatalf("response=%q", got.Response)
	}
	var h types.HealthResponse
	s.get(t, "/health", &h)
	if h.OllamaRunning || h.RuntimeStatus != types.RuntimeDown {
		t.Fatalf("health=%+v", h)
	}
	if code := s.get(t, "/readyz", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz=%d", code)
	}
}

func TestE2E_ModelLifecycle(t *testing.T) {
	s := newStack(t)
	s.fake.SetModels("llama3.2")
	s.fake.SetPull(0, `{"status":"pulling manifest"}`, `{"status":"success"}`)

	resp := s.postJSON(t, "/models/switch", types.ModelSwitchRequest{ModelName: "mistral:7b", Provider: "ollama"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("switch status=%d", resp.StatusCode)
	}
	var models types.ModelsResponse
	s.get(t, "/models", &models)
	if models.CurrentModel != "mistral:7b" || len(models.LocalModels) != 2 {
		t.Fatalf("models=%+v", models)
	}

	req, _ := http.NewRequest(http.MethodDelete, s.srv.URL+"/models/mistral:7b", nil)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusOK {
		t.Fatalf("delete status=%d", dresp.StatusCode)
	}

	var st types.StatusResponse
	s.get(t, "/status", &st)
	if st.RuntimeStatus != types.RuntimeUp || st.CurrentModel != "mistral:7b" {
		t.Fatalf("status=%+v", st)
	}
}

func TestE2E_OnlineWithoutKey(t *testing.T) {
	s := newStack(t)
	got := s.chat(t, types.ChatRequest{Message: "hi", UseOnline: true, OnlineProvider: "deepseek"})
	if got.Response != "DeepSeek API key not configured" || got.ModelUsed != "deepseek" {
		t.Fatalf("got=%+v", got)
	}
	if n := s.fake.Calls("/api/generate"); n != 0 {
		t.Fatalf("runtime called %d times", n)
	}
}
