package web

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"agentapi/pkg/api"
	"agentapi/pkg/llm"
	"agentapi/pkg/tools"

	"github.com/google/uuid"
)

const (
	welcomeMessage = "Welcome to the Agent API Service. See /docs for the OpenAPI description."
	maxBodyBytes   = 1 << 20
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ProcessRequest is the body of POST /api/v1/process and of websocket frames.
type ProcessRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

type processResponse struct {
	Response string `json:"response"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type toolResponse struct {
	Result any `json:"result"`
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []llm.Message `json:"messages"`
}

type handler struct {
	backend api.Backend
}

// NewHandler returns the API routes served over backend.
func NewHandler(b api.Backend) http.Handler {
	h := &handler{backend: b}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /ping", h.handlePing)
	mux.HandleFunc("GET /api/v1/ping", h.handlePing)
	mux.HandleFunc("GET /api/v1/process/{session_id}", h.handleProcessQuery)
	mux.HandleFunc("POST /api/v1/process", h.handleProcessBody)
	mux.HandleFunc("GET /api/v1/sessions/{session_id}/history", h.handleHistory)
	mux.HandleFunc("DELETE /api/v1/sessions/{session_id}", h.handleResetSession)
	mux.HandleFunc("GET /api/v1/tools", h.handleListTools)
	mux.HandleFunc("POST /api/v1/tools/{name}", h.handleInvokeTool)
	mux.HandleFunc("GET /api/v1/ws", h.handleWebSocket)
	mux.HandleFunc("GET /docs", h.handleOpenAPI)
	mux.HandleFunc("GET /openapi.json", h.handleOpenAPI)

	return withRequestID(mux)
}

// withRequestID tags each request with an id (taken from the client when it
// sends one) and logs the outcome.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := llm.WithRequestID(r.Context(), id)
		ctx = api.WithChannelID(ctx, ChannelID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		slog.DebugContext(ctx, "HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: welcomeMessage})
}

func (h *handler) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "pong"})
}

func (h *handler) handleProcessQuery(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, ProcessRequest{
		SessionID: r.PathValue("session_id"),
		UserInput: r.URL.Query().Get("user_input"),
	})
}

func (h *handler) handleProcessBody(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.process(w, r, req)
}

func (h *handler) process(w http.ResponseWriter, r *http.Request, req ProcessRequest) {
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	reply, err := h.backend.ProcessMessage(r.Context(), req.SessionID, req.UserInput)
	if err != nil {
		writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Response: reply})
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	msgs, ok := h.backend.History(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session '"+sessionID+"' not found")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Messages: msgs})
}

func (h *handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if !h.backend.ResetSession(sessionID) {
		writeError(w, http.StatusNotFound, "session '"+sessionID+"' not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.backend.Tools().List()})
}

func (h *handler) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	var args tools.Args
	if r.ContentLength != 0 {
		if err := decodeBody(r, &args); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	result, err := h.backend.Tools().Invoke(r.Context(), r.PathValue("name"), args)
	if err != nil {
		writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Result: result})
}

// Validate rejects requests missing either field.
func (p ProcessRequest) Validate() error {
	switch {
	case strings.TrimSpace(p.SessionID) == "":
		return errors.New("session_id is required")
	case strings.TrimSpace(p.UserInput) == "":
		return errors.New("user_input is required")
	}
	return nil
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.New("could not read request body")
	}
	if len(body) == 0 {
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("malformed JSON body")
	}
	return nil
}

// statusFor maps an error from the core onto an HTTP status and a detail
// safe to show to clients.
func statusFor(err error) (int, string) {
	var rse *llm.RemoteServiceError
	var nf *tools.NotFoundError
	var ae *tools.ArgumentError
	// deadline first: providers report timeouts as RemoteServiceError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error()
	case errors.As(err, &ae):
		return http.StatusUnprocessableEntity, ae.Error()
	case errors.As(err, &rse):
		return http.StatusBadGateway, "upstream completion service failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status, detail := statusFor(err)
	slog.ErrorContext(ctx, "Request failed", "status", status, "error", err)
	writeError(w, status, detail)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
