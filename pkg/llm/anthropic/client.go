package anthropic

import (
	"context"
	"net/http"
	"strings"

	"agentapi/pkg/llm"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens applies when the "max_tokens" option is unset.
const DefaultMaxTokens = 1024

// Client wraps the Anthropic Messages API.
type Client struct {
	client       *sdk.Client
	model        string
	maxTokens    int64
	temperature  *float64
	debugEnabled bool
}

// NewClient creates a client for one model. httpClient may be nil.
func NewClient(apiKey, model, baseURL string, options map[string]any, httpClient *http.Client) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	c := sdk.NewClient(opts...)

	client := &Client{
		client:    &c,
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
	if v, ok := options["max_tokens"].(float64); ok && v > 0 {
		client.maxTokens = int64(v)
	}
	if v, ok := options["temperature"].(float64); ok {
		client.temperature = &v
	}
	return client
}

func (c *Client) Provider() string {
	return "anthropic"
}

// SetDebug toggles raw response dumps.
func (c *Client) SetDebug(enabled bool) {
	c.debugEnabled = enabled
}

func (c *Client) Complete(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	system, turns := convertMessages(messages)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  turns,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if c.temperature != nil {
		params.Temperature = sdk.Float(*c.temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Message{}, c.wrap(err)
	}

	debugger := llm.NewResponseDebugger(ctx, "", c.Provider(), c.debugEnabled)
	debugger.WriteString(resp.RawJSON())
	debugger.Close()

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	llm.LogUsage(ctx, c.Provider(), c.model, &llm.Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		StopReason:       normalizeStopReason(string(resp.StopReason)),
	})

	if sb.Len() == 0 {
		return llm.Message{}, c.wrap(llm.ErrEmptyResponse)
	}
	return llm.NewAssistantMessage(sb.String()), nil
}

func (c *Client) wrap(err error) error {
	return &llm.RemoteServiceError{Provider: c.Provider(), Model: c.model, Err: err}
}

// convertMessages pulls the system prompt out; Anthropic takes it as a
// request field, not a turn.
func convertMessages(messages []llm.Message) (string, []sdk.MessageParam) {
	system, turns := llm.SplitSystem(messages)

	out := make([]sdk.MessageParam, 0, len(turns))
	for _, m := range turns {
		if m.Content == "" {
			continue
		}
		block := sdk.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(block))
		} else {
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return system, out
}

func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence", "":
		return llm.StopReasonStop
	case "max_tokens":
		return llm.StopReasonLength
	default:
		return reason
	}
}

func (c *Client) IsTransientError(err error) bool {
	return llm.ContainsAny(err, llm.CommonTransientMarkers...)
}
