package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"agentapi/pkg/api"
	"agentapi/pkg/config"
	"agentapi/pkg/llm"
	"agentapi/pkg/tools"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
)

func TestSplitMessage(t *testing.T) {
	if got := SplitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("short: %v", got)
	}

	got := SplitMessage(strings.Repeat("a", 25), 10)
	if diff := cmp.Diff([]string{strings.Repeat("a", 10), strings.Repeat("a", 10), "aaaaa"}, got); diff != "" {
		t.Errorf("hard split (-want +got):\n%s", diff)
	}

	got = SplitMessage("line one\nline two is longer", 12)
	if got[0] != "line one\n" {
		t.Errorf("newline split: %q", got)
	}
	if strings.Join(got, "") != "line one\nline two is longer" {
		t.Errorf("split lost text: %q", got)
	}

	// runes, not bytes
	got = SplitMessage("héllo wörld", 5)
	for _, c := range got {
		if n := len([]rune(c)); n > 5 {
			t.Errorf("chunk %q has %d runes", c, n)
		}
	}
}

func TestSessionID(t *testing.T) {
	if got := SessionID(-1001); got != "telegram_-1001" {
		t.Errorf("got %q", got)
	}
}

type botAPI struct {
	mu   sync.Mutex
	sent []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"test_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendChatAction"):
		w.Write([]byte(`{"ok":true,"result":true}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		b.mu.Lock()
		b.sent = append(b.sent, r.Form.Get("chat_id")+":"+r.Form.Get("text"))
		b.mu.Unlock()
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		w.Write([]byte(`{"ok":false,"error_code":404,"description":"not found"}`))
	}
}

type backend struct {
	err       error
	sessionID string
	channel   string
}

func (b *backend) ProcessMessage(ctx context.Context, sessionID, userInput string) (string, error) {
	b.sessionID, b.channel = sessionID, api.ChannelIDFrom(ctx)
	if b.err != nil {
		return "", b.err
	}
	return "echo: " + userInput, nil
}
func (b *backend) History(string) ([]llm.Message, bool) { return nil, false }
func (b *backend) ResetSession(string) bool             { return false }
func (b *backend) Tools() *tools.ToolRegistry           { return tools.NewToolRegistry() }

func newTestChannel(t *testing.T, limit int) (*TelegramChannel, *botAPI) {
	t.Helper()
	fake := &botAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	ch, err := NewTelegramChannel(TelegramConfig{Token: "T", Endpoint: srv.URL + "/bot%s/%s"}, limit)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	t.Cleanup(func() { ch.Stop(context.Background()) })
	return ch, fake
}

func update(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
	}}
}

func TestHandleUpdate_RepliesPerChatSession(t *testing.T) {
	ch, fake := newTestChannel(t, 4000)
	b := &backend{}

	ch.handleUpdate(context.Background(), b, update(42, "hi"))

	if b.sessionID != "telegram_42" || b.channel != ChannelID {
		t.Errorf("routed to %q via %q", b.sessionID, b.channel)
	}
	if diff := cmp.Diff([]string{"42:echo: hi"}, fake.sent); diff != "" {
		t.Errorf("sent (-want +got):\n%s", diff)
	}
}

func TestHandleUpdate_SplitsLongReplies(t *testing.T) {
	ch, fake := newTestChannel(t, 5)
	ch.handleUpdate(context.Background(), &backend{}, update(7, "abcdef"))

	// "echo: abcdef" is 12 runes
	if len(fake.sent) != 3 {
		t.Errorf("expected 3 bubbles, got %v", fake.sent)
	}
}

func TestHandleUpdate_FailureSendsApology(t *testing.T) {
	ch, fake := newTestChannel(t, 4000)
	ch.handleUpdate(context.Background(), &backend{err: errors.New("down")}, update(42, "hi"))

	if len(fake.sent) != 1 || !strings.Contains(fake.sent[0], "Sorry") {
		t.Errorf("sent: %v", fake.sent)
	}
}

func TestHandleUpdate_IgnoresNonText(t *testing.T) {
	ch, fake := newTestChannel(t, 4000)
	b := &backend{}
	ch.handleUpdate(context.Background(), b, tgbotapi.Update{UpdateID: 1})
	ch.handleUpdate(context.Background(), b, update(42, ""))
	if b.sessionID != "" || len(fake.sent) != 0 {
		t.Errorf("non-text update processed: %q %v", b.sessionID, fake.sent)
	}
}

func TestTelegramFactory(t *testing.T) {
	f := &TelegramFactory{}
	if _, err := f.Create([]byte(`{}`), config.DefaultSystemConfig()); err == nil {
		t.Error("expected missing token error")
	}
	ch, err := f.Create([]byte(`{"disabled": true}`), nil)
	if err != nil || ch != nil {
		t.Errorf("disabled: %v %v", ch, err)
	}
}
