package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is shared by the llm packages; everything goes through json-iterator.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Usage is the provider-neutral token accounting of one completion.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage records token usage for a completion at debug level.
func LogUsage(ctx context.Context, provider, model string, usage *Usage) {
	if usage == nil {
		return
	}
	slog.DebugContext(ctx, "Completion usage",
		"provider", provider,
		"model", model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
		"stop_reason", usage.StopReason,
	)
}

// LLMClient is the remote completion service: given an ordered list of
// role-tagged messages it returns one generated assistant message.
type LLMClient interface {
	// Complete blocks until the provider answers or ctx is done.
	Complete(ctx context.Context, messages []Message) (Message, error)

	// Provider names the backend ("gemini", "openai", ...).
	Provider() string

	// IsTransientError reports whether err is worth retrying (503, rate limit...).
	IsTransientError(err error) bool
}

// FallbackClient tries several clients in order, retrying each one on
// transient errors.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) Complete(ctx context.Context, messages []Message) (Message, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback", "index", i+1, "provider", client.Provider())
		}

		// at least one attempt per client
		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.InfoContext(ctx, "Retrying provider", "index", i+1, "attempt", retry, "max", maxRetries)
				select {
				case <-ctx.Done():
					return Message{}, &RemoteServiceError{Provider: client.Provider(), Err: ctx.Err()}
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			reply, err := client.Complete(ctx, messages)
			if err == nil {
				return reply, nil
			}
			lastErr = err

			if ctx.Err() != nil {
				return Message{}, asRemoteError(client.Provider(), err)
			}

			if client.IsTransientError(err) && retry < maxRetries {
				slog.WarnContext(ctx, "Provider failed with transient error", "index", i+1, "error", err)
				continue
			}

			slog.ErrorContext(ctx, "Provider failed", "index", i+1, "error", err)
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no completion clients configured")
	}
	return Message{}, asRemoteError(f.Provider(), lastErr)
}

// IsTransientError is always false: a FallbackClient error means every
// child already gave up.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}

func asRemoteError(provider string, err error) error {
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return err
	}
	return &RemoteServiceError{Provider: provider, Err: err}
}
