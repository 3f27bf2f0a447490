package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agentapi/pkg/config"

	"github.com/google/go-cmp/cmp"
)

type scriptedClient struct {
	name      string
	errs      []error
	reply     string
	calls     int
	transient bool
}

func (c *scriptedClient) Complete(ctx context.Context, messages []Message) (Message, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return Message{}, err
	}
	return NewAssistantMessage(c.reply), nil
}

func (c *scriptedClient) Provider() string { return c.name }

func (c *scriptedClient) IsTransientError(err error) bool { return c.transient }

func contents(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Role+"/"+m.Content)
	}
	return out
}

func TestChatHistory_OrderAndWindow(t *testing.T) {
	h := NewChatHistory(0)
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		h.Add(NewHumanMessage(s))
	}
	if h.Len() != 7 {
		t.Fatalf("len: got %d want 7", h.Len())
	}
	want := []string{"human/c", "human/d", "human/e", "human/f", "human/g"}
	if diff := cmp.Diff(want, contents(h.Window(5))); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if got := h.Window(50); len(got) != 7 {
		t.Errorf("oversized window: got %d want 7", len(got))
	}
	if got := h.Window(0); len(got) != 0 {
		t.Errorf("zero window: got %d", len(got))
	}
}

func TestChatHistory_LimitDropsOldest(t *testing.T) {
	h := NewChatHistory(3)
	for _, s := range []string{"1", "2", "3", "4", "5"} {
		h.Add(NewHumanMessage(s))
	}
	want := []string{"human/3", "human/4", "human/5"}
	if diff := cmp.Diff(want, contents(h.GetMessages())); diff != "" {
		t.Errorf("bounded history mismatch (-want +got):\n%s", diff)
	}
}

func TestChatHistory_GetMessagesIsCopy(t *testing.T) {
	h := NewChatHistory(0)
	h.Add(NewHumanMessage("hi"))
	msgs := h.GetMessages()
	msgs[0].Content = "mutated"
	if h.GetMessages()[0].Content != "hi" {
		t.Fatal("history was mutated through a returned slice")
	}
}

func TestSplitSystem(t *testing.T) {
	system, turns := SplitSystem([]Message{
		NewSystemMessage("be nice"),
		NewHumanMessage("hi"),
		NewAssistantMessage("hello"),
	})
	if system != "be nice" {
		t.Errorf("system: got %q", system)
	}
	if diff := cmp.Diff([]string{"human/hi", "assistant/hello"}, contents(turns)); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestFallbackClient_RetriesTransientThenSucceeds(t *testing.T) {
	c := &scriptedClient{name: "a", errs: []error{errors.New("503 overloaded")}, reply: "ok", transient: true}
	f := &FallbackClient{Clients: []LLMClient{c}, MaxRetries: 3, RetryDelay: time.Millisecond}

	reply, err := f.Complete(context.Background(), []Message{NewHumanMessage("hi")})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if reply.Content != "ok" || c.calls != 2 {
		t.Fatalf("got reply %q after %d calls", reply.Content, c.calls)
	}
}

func TestFallbackClient_MovesToNextClient(t *testing.T) {
	first := &scriptedClient{name: "a", errs: []error{errors.New("401 unauthorized")}}
	second := &scriptedClient{name: "b", reply: "from b"}
	f := &FallbackClient{Clients: []LLMClient{first, second}, MaxRetries: 3}

	reply, err := f.Complete(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if reply.Content != "from b" {
		t.Errorf("reply: got %q", reply.Content)
	}
	if first.calls != 1 {
		t.Errorf("non-transient error should not be retried, got %d calls", first.calls)
	}
}

func TestFallbackClient_AllFailWrapsRemoteServiceError(t *testing.T) {
	cause := errors.New("boom")
	f := &FallbackClient{Clients: []LLMClient{&scriptedClient{name: "a", errs: []error{cause}}}}

	_, err := f.Complete(context.Background(), nil)
	var rse *RemoteServiceError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteServiceError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestFallbackClient_NoClients(t *testing.T) {
	_, err := (&FallbackClient{}).Complete(context.Background(), nil)
	var rse *RemoteServiceError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny(errors.New("Error 429: Resource Exhausted"), CommonTransientMarkers...) {
		t.Error("429 should be transient")
	}
	if ContainsAny(errors.New("400 bad request"), CommonTransientMarkers...) {
		t.Error("400 should not be transient")
	}
	if ContainsAny(nil, "x") {
		t.Error("nil error matched")
	}
}

type fakeFactory struct {
	clients []LLMClient
	err     error
	seen    []ProviderGroupConfig
}

func (f *fakeFactory) Create(g ProviderGroupConfig, _ *config.SystemConfig) ([]LLMClient, error) {
	f.seen = append(f.seen, g)
	return f.clients, f.err
}

func TestNewFromConfig(t *testing.T) {
	one := &fakeFactory{clients: []LLMClient{&scriptedClient{name: "one"}}}
	RegisterProvider("test-one", one)
	RegisterProvider("test-broken", &fakeFactory{err: errors.New("no key")})

	t.Run("single client returned directly", func(t *testing.T) {
		c, err := NewFromConfig([]byte(`[{"type":"test-one","models":["m1"]},{"type":"unknown"}]`), config.DefaultSystemConfig())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if c.Provider() != "one" {
			t.Errorf("expected the bare client, got %q", c.Provider())
		}
	})

	t.Run("retries wrap in fallback", func(t *testing.T) {
		sys := config.DefaultSystemConfig()
		sys.MaxRetries = 3
		c, err := NewFromConfig([]byte(`[{"type":"test-one","models":["m1"]}]`), sys)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if _, ok := c.(*FallbackClient); !ok {
			t.Errorf("expected *FallbackClient, got %T", c)
		}
	})

	t.Run("nothing usable", func(t *testing.T) {
		if _, err := NewFromConfig([]byte(`[{"type":"test-broken"}]`), nil); err == nil {
			t.Error("expected error when no client initializes")
		}
		if _, err := NewFromConfig(nil, nil); err == nil {
			t.Error("expected error for missing config")
		}
		if _, err := NewFromConfig([]byte(`{"type":"x"}`), nil); err == nil {
			t.Error("expected error for non-array config")
		}
	})
}

func TestProviderGroupConfig_KeysFallsBackToEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "from-env")

	g := ProviderGroupConfig{}
	if diff := cmp.Diff([]string{"from-env"}, g.Keys("TEST_PROVIDER_KEY")); diff != "" {
		t.Errorf("env fallback (-want +got):\n%s", diff)
	}
	g.APIKeys = []string{"explicit"}
	if diff := cmp.Diff([]string{"explicit"}, g.Keys("TEST_PROVIDER_KEY")); diff != "" {
		t.Errorf("explicit keys (-want +got):\n%s", diff)
	}
}

func TestResponseDebugger_WritesUnderRequestID(t *testing.T) {
	root := t.TempDir()
	ctx := WithRequestID(context.Background(), "req-1")

	d := NewResponseDebugger(ctx, root, "gemini", true)
	d.WriteJSON(map[string]string{"text": "hello"})
	d.WriteString("raw line")
	d.Close()

	b, err := os.ReadFile(filepath.Join(root, "responses", "gemini", "req-1.log"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	got := string(b)
	if !strings.Contains(got, `{"text":"hello"}`) || !strings.Contains(got, "raw line") {
		t.Errorf("unexpected dump content: %q", got)
	}
}

func TestResponseDebugger_DisabledIsNoop(t *testing.T) {
	d := NewResponseDebugger(context.Background(), t.TempDir(), "gemini", false)
	if d.Enabled() {
		t.Fatal("disabled debugger reports enabled")
	}
	d.WriteString("ignored")
	d.Close()
}
