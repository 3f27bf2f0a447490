package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"agentapi/pkg/agent"
	"agentapi/pkg/api"
	"agentapi/pkg/llm"
	"agentapi/pkg/tools"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

// fakeBackend echoes input per session and can be told to fail.
type fakeBackend struct {
	mu       sync.Mutex
	err      error
	sessions map[string][]llm.Message
	lastCtx  context.Context
	registry *tools.ToolRegistry
}

func newFakeBackend() *fakeBackend {
	r := tools.NewToolRegistry()
	r.RegisterEntry(tools.EchoEntry())
	return &fakeBackend{sessions: map[string][]llm.Message{}, registry: r}
}

func (b *fakeBackend) ProcessMessage(ctx context.Context, sessionID, userInput string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCtx = ctx
	if b.err != nil {
		return "", b.err
	}
	reply := "echo: " + userInput
	b.sessions[sessionID] = append(b.sessions[sessionID], llm.NewHumanMessage(userInput), llm.NewAssistantMessage(reply))
	return reply, nil
}

func (b *fakeBackend) History(sessionID string) ([]llm.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.sessions[sessionID]
	return m, ok
}

func (b *fakeBackend) ResetSession(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	return ok
}

func (b *fakeBackend) Tools() *tools.ToolRegistry { return b.registry }

var _ api.Backend = (*fakeBackend)(nil)

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, target, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestPing(t *testing.T) {
	h := NewHandler(newFakeBackend())
	for _, path := range []string{"/ping", "/api/v1/ping"} {
		rec, out := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK || out["message"] != "pong" {
			t.Errorf("%s: %d %v", path, rec.Code, out)
		}
	}
}

func TestRoot(t *testing.T) {
	rec, out := do(t, NewHandler(newFakeBackend()), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || out["message"] != welcomeMessage {
		t.Errorf("root: %d %v", rec.Code, out)
	}
}

func TestProcess_QueryAndBodyForms(t *testing.T) {
	b := newFakeBackend()
	h := NewHandler(b)

	rec, out := do(t, h, http.MethodGet, "/api/v1/process/abc?user_input=hello", "")
	if rec.Code != http.StatusOK || out["response"] != "echo: hello" {
		t.Fatalf("query form: %d %v", rec.Code, out)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if api.ChannelIDFrom(b.lastCtx) != ChannelID || llm.RequestIDFrom(b.lastCtx) == "" {
		t.Error("request context not tagged")
	}

	rec, out = do(t, h, http.MethodPost, "/api/v1/process", `{"session_id":"abc","user_input":"again"}`)
	if rec.Code != http.StatusOK || out["response"] != "echo: again" {
		t.Fatalf("body form: %d %v", rec.Code, out)
	}
	if got := len(b.sessions["abc"]); got != 4 {
		t.Errorf("session abc: got %d messages want 4", got)
	}
}

func TestProcess_ValidationIs422(t *testing.T) {
	h := NewHandler(newFakeBackend())
	cases := map[string]struct{ method, target, body string }{
		"missing input":   {http.MethodGet, "/api/v1/process/abc", ""},
		"blank session":   {http.MethodPost, "/api/v1/process", `{"session_id":" ","user_input":"x"}`},
		"missing field":   {http.MethodPost, "/api/v1/process", `{"session_id":"abc"}`},
		"malformed body":  {http.MethodPost, "/api/v1/process", `{"session_id":`},
		"empty post body": {http.MethodPost, "/api/v1/process", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, out := do(t, h, tc.method, tc.target, tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status: got %d want 422", rec.Code)
			}
			if out["detail"] == "" || out["detail"] == nil {
				t.Errorf("missing detail: %v", out)
			}
		})
	}
}

func TestProcess_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&llm.RemoteServiceError{Provider: "gemini", Err: errors.New("401")}, http.StatusBadGateway},
		{errors.New("something else"), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&llm.RemoteServiceError{Provider: "gemini", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{&tools.ArgumentError{Tool: "clock", Err: errors.New("bad")}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		b := newFakeBackend()
		b.err = tc.err
		rec, out := do(t, NewHandler(b), http.MethodGet, "/api/v1/process/s?user_input=x", "")
		if rec.Code != tc.want {
			t.Errorf("%v: status %d want %d", tc.err, rec.Code, tc.want)
		}
		if strings.Contains(out["detail"].(string), "401") {
			t.Errorf("provider detail leaked: %v", out)
		}
	}
}

func TestSessionsEndpoints(t *testing.T) {
	b := newFakeBackend()
	h := NewHandler(b)
	do(t, h, http.MethodPost, "/api/v1/process", `{"session_id":"s1","user_input":"hi"}`)

	rec, out := do(t, h, http.MethodGet, "/api/v1/sessions/s1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	if msgs, _ := out["messages"].([]any); len(msgs) != 2 {
		t.Errorf("history messages: %v", out["messages"])
	}

	if rec, _ := do(t, h, http.MethodDelete, "/api/v1/sessions/s1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec, _ := do(t, h, http.MethodDelete, "/api/v1/sessions/s1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: %d", rec.Code)
	}
	if rec, _ := do(t, h, http.MethodGet, "/api/v1/sessions/s1/history", ""); rec.Code != http.StatusNotFound {
		t.Errorf("history after delete: %d", rec.Code)
	}
}

func TestToolsEndpoints(t *testing.T) {
	h := NewHandler(newFakeBackend())

	rec, out := do(t, h, http.MethodGet, "/api/v1/tools", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list, _ := out["tools"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["name"] != "echo" {
		t.Errorf("tools: %v", out)
	}

	rec, out = do(t, h, http.MethodPost, "/api/v1/tools/echo", `{"text":"hi"}`)
	if rec.Code != http.StatusOK || out["result"] != "hi" {
		t.Errorf("invoke echo: %d %v", rec.Code, out)
	}

	rec, out = do(t, h, http.MethodPost, "/api/v1/tools/echo", `{"text": 42}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("echo with bad args: %d %v", rec.Code, out)
	}

	rec, out = do(t, h, http.MethodPost, "/api/v1/tools/missing", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing tool: %d %v", rec.Code, out)
	}
}

func TestWebSocket(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newFakeBackend()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(frame string) wsFrame {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var got wsFrame
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return got
	}

	got := send(`{"session_id":"ws1","user_input":"hello"}`)
	want := wsFrame{Type: "response", SessionID: "ws1", Response: "echo: hello"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response frame (-want +got):\n%s", diff)
	}

	if got := send(`not json`); got.Type != "error" {
		t.Errorf("malformed frame: %+v", got)
	}
	if got := send(`{"session_id":"ws1"}`); got.Type != "error" || got.Detail != "user_input is required" {
		t.Errorf("invalid frame: %+v", got)
	}
}

func TestWebChannel_StartStop(t *testing.T) {
	c := NewWebChannel(WebConfig{Host: "127.0.0.1", Port: 0})
	// port 0 is only reachable through NewWebChannel, the factory rejects it
	if err := c.Start(context.Background(), newFakeBackend()); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + c.Addr() + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ping status: %d", resp.StatusCode)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("stop: %v", err)
	}
}

func TestWebFactory(t *testing.T) {
	f := &WebFactory{}
	ch, err := f.Create(nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ch.(*WebChannel).config.Port != DefaultPort {
		t.Errorf("default port: %d", ch.(*WebChannel).config.Port)
	}
	if _, err := f.Create([]byte(`{"port": 70000}`), nil); err == nil {
		t.Error("expected invalid port error")
	}
}

// blockingClient waits for the deadline and reports it the way providers do.
type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, _ []llm.Message) (llm.Message, error) {
	<-ctx.Done()
	return llm.Message{}, &llm.RemoteServiceError{Provider: "blocking", Err: ctx.Err()}
}
func (blockingClient) Provider() string             { return "blocking" }
func (blockingClient) IsTransientError(error) bool { return false }

func TestProcess_AgentTimeoutIs504(t *testing.T) {
	store := agent.NewSessionStore(blockingClient{}, agent.Options{ContextWindow: 5, Timeout: 20 * time.Millisecond})
	h := NewHandler(agent.NewManager(store, nil))

	rec, out := do(t, h, http.MethodGet, "/api/v1/process/s1?user_input=hi", "")
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status: got %d want 504 (%v)", rec.Code, out)
	}
	if out["detail"] != "request timed out" {
		t.Errorf("detail: %v", out)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	h := NewHandler(newFakeBackend())
	for _, path := range []string{"/docs", "/openapi.json"} {
		rec, out := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK || out["openapi"] != "3.1.0" {
			t.Fatalf("%s: %d %v", path, rec.Code, out)
		}
		paths, _ := out["paths"].(map[string]any)
		if _, ok := paths["/api/v1/process/{session_id}"]; !ok {
			t.Errorf("%s: process route missing", path)
		}
	}
}
