package httpapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"chatd/pkg/types"
)

const (
	wsFrameChunk    = "chunk"
	wsFrameResponse = "response"
	wsFrameError    = "error"

	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts any origin unless CORS is enabled with an explicit
// origin list.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || !corsEnabled || len(corsAllowedOrigins) == 0 {
		return true
	}
	if slices.Contains(corsAllowedOrigins, "*") {
		return true
	}
	return slices.ContainsFunc(corsAllowedOrigins, func(o string) bool {
		return strings.EqualFold(o, origin)
	})
}

// serveWS serves a chat session. Each inbound JSON message is one turn;
// the reply is written as chunk frames followed by one response frame.
func (h *handlers) serveWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)
	wsConnections.Inc()
	defer wsConnections.Dec()

	lvl := requestLogLevel(r)
	logTurn(r, lvl, "ws open", sessionID, 0, time.Now(), nil)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logTurn(r, lvl, "ws closed", sessionID, http.StatusSwitchingProtocols, time.Now(), err)
			}
			return
		}
		var in types.WSInbound
		if err := json.Unmarshal(data, &in); err != nil {
			if err := writeFrame(conn, wsFrameError, "invalid JSON message"); err != nil {
				return
			}
			continue
		}
		if strings.TrimSpace(in.Message) == "" {
			if err := writeFrame(conn, wsFrameError, "message is required"); err != nil {
				return
			}
			continue
		}
		if !h.wsTurn(r, conn, sessionID, in) {
			return
		}
	}
}

// wsTurn streams one turn to conn. It reports false once the connection is
// no longer writable.
func (h *handlers) wsTurn(r *http.Request, conn *websocket.Conn, sessionID string, in types.WSInbound) bool {
	start := time.Now()
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	_, s := h.svc.ChatStream(ctx, types.ChatRequest{
		Message:        in.Message,
		Model:          in.Model,
		UseOnline:      in.UseOnline,
		OnlineProvider: in.OnlineProvider,
		SessionID:      sessionID,
		Task:           in.Task,
	})
	defer s.Close()
	chatTurnsTotal.WithLabelValues("websocket").Inc()

	var b strings.Builder
	for c := range s.Chunks() {
		b.WriteString(c.Text)
		if c.Text == "" {
			continue
		}
		if err := writeFrame(conn, wsFrameChunk, c.Text); err != nil {
			logTurn(r, requestLogLevel(r), "ws turn", sessionID, http.StatusOK, start, err)
			return false
		}
	}
	if err := writeFrame(conn, wsFrameResponse, b.String()); err != nil {
		return false
	}
	logTurn(r, requestLogLevel(r), "ws turn", sessionID, http.StatusOK, start, nil)
	return true
}

func writeFrame(conn *websocket.Conn, typ, content string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(types.WSOutbound{
		Type:      typ,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
