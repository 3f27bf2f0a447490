package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agentapi/pkg/llm"

	"github.com/ollama/ollama/api"
)

// OllamaClient Ollama API client
type OllamaClient struct {
	client       *api.Client
	model        string
	options      map[string]any
	debugEnabled bool
}

// NewOllamaClient creates an Ollama client. An empty baseURL reads
// OLLAMA_HOST from the environment. httpClient may be nil.
func NewOllamaClient(model, baseURL string, options map[string]any, httpClient *http.Client) (*OllamaClient, error) {
	if httpClient == nil {
		// No overall timeout: local models can take minutes; the caller's
		// context bounds the request instead.
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}

	var client *api.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, httpClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:  client,
		model:   model,
		options: options,
	}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// SetDebug toggles raw response dumps.
func (o *OllamaClient) SetDebug(enabled bool) {
	o.debugEnabled = enabled
}

func (o *OllamaClient) Complete(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: convertMessages(messages),
		Options:  o.options,
		Stream:   &stream,
	}

	debugger := llm.NewResponseDebugger(ctx, "", o.Provider(), o.debugEnabled)
	defer debugger.Close()

	var sb strings.Builder
	var usage *llm.Usage
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		debugger.WriteJSON(resp)
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			usage = &llm.Usage{
				PromptTokens:     resp.Metrics.PromptEvalCount,
				CompletionTokens: resp.Metrics.EvalCount,
				TotalTokens:      resp.Metrics.PromptEvalCount + resp.Metrics.EvalCount,
				StopReason:       normalizeStopReason(resp.DoneReason),
			}
		}
		return nil
	})
	if err != nil {
		return llm.Message{}, o.wrap(err)
	}

	llm.LogUsage(ctx, o.Provider(), o.model, usage)

	text := sb.String()
	if text == "" {
		return llm.Message{}, o.wrap(llm.ErrEmptyResponse)
	}
	return llm.NewAssistantMessage(text), nil
}

func (o *OllamaClient) wrap(err error) error {
	return &llm.RemoteServiceError{Provider: o.Provider(), Model: o.model, Err: err}
}

func convertMessages(messages []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == llm.RoleHuman {
			role = "user"
		}
		out = append(out, api.Message{Role: role, Content: m.Content})
	}
	return out
}

func normalizeStopReason(reason string) string {
	switch strings.ToLower(reason) {
	case "stop", "":
		return llm.StopReasonStop
	case "length":
		return llm.StopReasonLength
	default:
		return reason
	}
}

// IsTransientError implements the llm.LLMClient interface
func (o *OllamaClient) IsTransientError(err error) bool {
	return llm.ContainsAny(err, llm.CommonTransientMarkers...)
}
