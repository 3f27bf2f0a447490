package agent

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"agentapi/pkg/config"
	"agentapi/pkg/llm"
)

// Options tunes one ConversationAgent.
type Options struct {
	SystemPrompt     string
	ContextWindow    int
	IncludeHistory   bool
	MaxContextTokens int
	MaxMessages      int
	Timeout          time.Duration
}

// OptionsFromSystem maps system.json settings onto agent options.
// An empty prompt selects DefaultSystemPrompt.
func OptionsFromSystem(sys *config.SystemConfig, prompt string) Options {
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return Options{
		SystemPrompt:     prompt,
		ContextWindow:    sys.ContextWindow,
		IncludeHistory:   sys.IncludeHistory,
		MaxContextTokens: sys.MaxContextTokens,
		MaxMessages:      sys.MaxMessages,
		Timeout:          time.Duration(sys.LLMTimeoutMs) * time.Millisecond,
	}
}

// ConversationAgent holds the memory of one conversation and turns user
// input into assistant replies.
type ConversationAgent struct {
	client   llm.LLMClient
	memory   *llm.ChatHistory
	opts     Options
	mu       sync.Mutex // serialises Respond so human/assistant pairs stay adjacent
	lastUsed atomic.Int64
}

// NewConversationAgent creates an agent with empty memory.
func NewConversationAgent(client llm.LLMClient, opts Options) *ConversationAgent {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	a := &ConversationAgent{
		client: client,
		memory: llm.NewChatHistory(opts.MaxMessages),
		opts:   opts,
	}
	a.touch()
	return a
}

func (a *ConversationAgent) touch() {
	a.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed reports when the agent last started a turn.
func (a *ConversationAgent) LastUsed() time.Time {
	return time.Unix(0, a.lastUsed.Load())
}

// Respond records userInput, asks the completion service for a reply and
// records the reply. On failure the human turn stays in memory and the
// error (a *llm.RemoteServiceError for provider failures) is returned.
func (a *ConversationAgent) Respond(ctx context.Context, userInput string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touch()

	a.memory.Add(llm.NewHumanMessage(userInput))

	prompt, err := a.buildPrompt(userInput)
	if err != nil {
		return "", err
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := a.client.Complete(ctx, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "Completion failed", "provider", a.client.Provider(), "error", err)
		return "", err
	}
	slog.DebugContext(ctx, "Completion finished", "provider", a.client.Provider(), "duration", time.Since(start), "prompt_messages", len(prompt))

	a.memory.Add(llm.NewAssistantMessage(reply.Content))
	a.touch()
	return reply.Content, nil
}

func (a *ConversationAgent) buildPrompt(userInput string) ([]llm.Message, error) {
	system := llm.NewSystemMessage(a.opts.SystemPrompt)
	if !a.opts.IncludeHistory {
		return []llm.Message{system, llm.NewHumanMessage(userInput)}, nil
	}
	prompt := append([]llm.Message{system}, a.Context()...)
	return TrimToTokens(prompt, a.opts.MaxContextTokens)
}

// Context returns the last ContextWindow messages.
func (a *ConversationAgent) Context() []llm.Message {
	return a.memory.Window(a.opts.ContextWindow)
}

// Messages returns a copy of the whole memory.
func (a *ConversationAgent) Messages() []llm.Message {
	return a.memory.GetMessages()
}

// Len returns the number of remembered messages.
func (a *ConversationAgent) Len() int {
	return a.memory.Len()
}
