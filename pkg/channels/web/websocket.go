package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"agentapi/pkg/llm"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = maxBodyBytes
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

// wsFrame is what the server sends back for every inbound frame.
type wsFrame struct {
	Type      string `json:"type"` // "response" or "error"
	SessionID string `json:"session_id,omitempty"`
	Response  string `json:"response,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// SafeConn serialises writes; gorilla connections allow one concurrent writer.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return sc.Conn.WriteMessage(websocket.TextMessage, data)
}

// handleWebSocket answers each {"session_id","user_input"} text frame with
// one response or error frame. Frames are processed in arrival order.
func (h *handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "WS Upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	slog.InfoContext(r.Context(), "WS client connected", "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(r.Context(), "WS read failed", "error", err)
			}
			return
		}

		// each frame is its own request
		ctx := llm.WithRequestID(r.Context(), uuid.NewString())

		var req ProcessRequest
		if err := json.Unmarshal(data, &req); err != nil {
			conn.WriteJSON(wsFrame{Type: "error", Detail: "malformed JSON frame"})
			continue
		}
		if err := req.Validate(); err != nil {
			conn.WriteJSON(wsFrame{Type: "error", SessionID: req.SessionID, Detail: err.Error()})
			continue
		}

		reply, err := h.backend.ProcessMessage(ctx, req.SessionID, req.UserInput)
		if err != nil {
			_, detail := statusFor(err)
			slog.ErrorContext(ctx, "WS turn failed", "session_id", req.SessionID, "error", err)
			conn.WriteJSON(wsFrame{Type: "error", SessionID: req.SessionID, Detail: detail})
			continue
		}
		if err := conn.WriteJSON(wsFrame{Type: "response", SessionID: req.SessionID, Response: reply}); err != nil {
			slog.WarnContext(ctx, "WS write failed", "error", err)
			return
		}
	}
}
