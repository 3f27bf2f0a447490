package openailm

import (
	"context"
	"net/http"
	"strings"

	"agentapi/pkg/llm"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// Client is a wrapper around the official OpenAI Go SDK (Responses API).
type Client struct {
	client       *openai.Client
	provider     string
	model        string
	debugEnabled bool
	options      map[string]any
}

// NewClient creates a new OpenAI client. httpClient may be nil.
func NewClient(provider, apiKey, model, baseURL string, options map[string]any, httpClient *http.Client) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		options:  options,
	}
}

func (c *Client) Provider() string {
	return c.provider
}

// SetDebug toggles raw response dumps.
func (c *Client) SetDebug(enabled bool) {
	c.debugEnabled = enabled
}

func (c *Client) IsTransientError(err error) bool {
	return llm.ContainsAny(err, llm.CommonTransientMarkers...)
}

func (c *Client) Complete(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: convertMessages(messages),
		},
	}

	if effort := reasoningEffort(c.options); effort != "" {
		params.Reasoning = shared.ReasoningParam{Effort: effort}
	}

	var opts []option.RequestOption
	if t, ok := c.options["temperature"].(float64); ok {
		opts = append(opts, option.WithJSONSet("temperature", t))
	}
	if p, ok := c.options["top_p"].(float64); ok {
		opts = append(opts, option.WithJSONSet("top_p", p))
	}
	if maxTok, ok := c.options["max_tokens"].(float64); ok {
		opts = append(opts, option.WithJSONSet("max_output_tokens", int(maxTok)))
	}

	resp, err := c.client.Responses.New(ctx, params, opts...)
	if err != nil {
		return llm.Message{}, c.wrap(err)
	}

	debugger := llm.NewResponseDebugger(ctx, "", c.provider, c.debugEnabled)
	debugger.WriteString(resp.RawJSON())
	debugger.Close()

	usage := &llm.Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		StopReason:       normalizeStopReason(string(resp.Status)),
	}
	llm.LogUsage(ctx, c.provider, c.model, usage)

	text := resp.OutputText()
	if text == "" {
		return llm.Message{}, c.wrap(llm.ErrEmptyResponse)
	}
	return llm.NewAssistantMessage(text), nil
}

func (c *Client) wrap(err error) error {
	return &llm.RemoteServiceError{Provider: c.provider, Model: c.model, Err: err}
}

// reasoningEffort maps the unified "thinking_effort" option.
func reasoningEffort(options map[string]any) shared.ReasoningEffort {
	effortStr, _ := options["thinking_effort"].(string)
	switch effortStr {
	case "", "off":
		return ""
	case "low":
		return shared.ReasoningEffortLow
	case "high":
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffortMedium
	}
}

func convertMessages(messages []llm.Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			items = append(items, responses.ResponseInputItemParamOfMessage(
				m.Content,
				responses.EasyInputMessageRoleSystem,
			))
		case llm.RoleHuman:
			items = append(items, responses.ResponseInputItemParamOfMessage(
				m.Content,
				responses.EasyInputMessageRoleUser,
			))
		case llm.RoleAssistant:
			if m.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(
					m.Content,
					responses.EasyInputMessageRoleAssistant,
				))
			}
		}
	}

	return items
}

// normalizeStopReason converts the response status to the shared vocabulary.
func normalizeStopReason(status string) string {
	switch strings.ToLower(status) {
	case "completed", "stop", "":
		return llm.StopReasonStop
	case "incomplete", "length":
		return llm.StopReasonLength
	default:
		return status
	}
}
