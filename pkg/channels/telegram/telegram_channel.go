package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"agentapi/pkg/api"
	"agentapi/pkg/llm"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// ChannelID tags messages received from Telegram.
const ChannelID = "telegram"

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token    string `json:"token"`    // The secret BOT API string provided by @BotFather
	Endpoint string `json:"endpoint"` // Bot API URL template; defaults to the public API
	Disabled bool   `json:"disabled"`
}

// TelegramChannel long-polls the Bot API and answers every text message
// through the backend. Each chat is its own session.
type TelegramChannel struct {
	config       TelegramConfig
	bot          *tgbotapi.BotAPI
	messageLimit int // Maximum character count per single message bubble
	stopCtx      context.Context
	stopCancel   context.CancelFunc
	wg           sync.WaitGroup
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int) (*TelegramChannel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Tie every dial to stopCtx so Stop aborts an in-flight long poll;
	// otherwise a restarted bot gets 409 Conflict from the old request.
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	botHTTPClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, botHTTPClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	if msgLimit <= 0 {
		msgLimit = 4000
	}
	return &TelegramChannel{
		config:       cfg,
		bot:          bot,
		messageLimit: msgLimit,
		stopCtx:      ctx,
		stopCancel:   cancel,
	}, nil
}

func (t *TelegramChannel) ID() string {
	return ChannelID
}

// SessionID maps a chat onto its conversation.
func SessionID(chatID int64) string {
	return "telegram_" + strconv.FormatInt(chatID, 10)
}

// Start runs the long-polling loop in the background.
func (t *TelegramChannel) Start(ctx context.Context, b api.Backend) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.poll(b)
	}()
	return nil
}

func (t *TelegramChannel) poll(b api.Backend) {
	offset := 0
	for {
		select {
		case <-t.stopCtx.Done():
			return
		default:
		}

		reqConfig := tgbotapi.NewUpdate(offset)
		reqConfig.Timeout = 60

		updates, err := t.bot.GetUpdates(reqConfig)
		if err != nil {
			select {
			case <-t.stopCtx.Done():
				return
			case <-time.After(3 * time.Second):
				slog.Debug("Failed to get telegram updates", "error", err)
				continue
			}
		}

		for _, update := range updates {
			if update.UpdateID < offset {
				continue
			}
			offset = update.UpdateID + 1

			t.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer t.wg.Done()
				t.handleUpdate(t.stopCtx, b, u)
			}(update)
		}
	}
}

// handleUpdate answers one update. Non-text updates are ignored.
func (t *TelegramChannel) handleUpdate(ctx context.Context, b api.Backend, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	ctx = api.WithChannelID(ctx, ChannelID)
	ctx = llm.WithRequestID(ctx, uuid.NewString())
	sessionID := SessionID(msg.Chat.ID)

	if _, err := t.bot.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		slog.DebugContext(ctx, "Typing indicator failed", "error", err)
	}

	reply, err := b.ProcessMessage(ctx, sessionID, text)
	if err != nil {
		slog.ErrorContext(ctx, "Telegram turn failed", "session_id", sessionID, "error", err)
		reply = "Sorry, I could not answer right now. Please try again later."
	}
	if err := t.Send(msg.Chat.ID, reply); err != nil {
		slog.ErrorContext(ctx, "Telegram reply failed", "session_id", sessionID, "error", err)
	}
}

// Send delivers message to chatID, split into bubbles of at most
// messageLimit characters.
func (t *TelegramChannel) Send(chatID int64, message string) error {
	for i, chunk := range SplitMessage(message, t.messageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk %d failed: %w", i, err)
		}
	}
	return nil
}

// SplitMessage cuts text into pieces of at most limit runes, preferring to
// break after a newline in the second half of a piece.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// Stop aborts the long poll and waits for in-flight replies until ctx ends.
func (t *TelegramChannel) Stop(ctx context.Context) error {
	t.stopCancel()

	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
