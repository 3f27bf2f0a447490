package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"agentapi/pkg/llm"

	"google.golang.org/genai"
)

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client       *genai.Client
	model        string
	temperature  *float32
	debugEnabled bool
	debugRoot    string
}

// Options tunes a GeminiClient beyond key and model.
type Options struct {
	BaseURL     string
	Temperature *float32
	HTTPClient  *http.Client // nil uses the SDK default
	Debug       bool
	DebugRoot   string
}

// NewGeminiClient creates a Gemini client with a single model and API key
func NewGeminiClient(ctx context.Context, apiKey, model string, opts Options) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		model:        model,
		temperature:  opts.Temperature,
		debugEnabled: opts.Debug,
		debugRoot:    opts.DebugRoot,
	}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// Complete implements llm.LLMClient.
func (g *GeminiClient) Complete(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	contents, systemInstruction := convertMessages(messages)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       g.temperature,
	})
	if err != nil {
		return llm.Message{}, g.wrap(err)
	}

	debugger := llm.NewResponseDebugger(ctx, g.debugRoot, g.Provider(), g.debugEnabled)
	debugger.WriteJSON(resp)
	debugger.Close()

	text, usage := extract(resp)
	llm.LogUsage(ctx, g.Provider(), g.model, usage)

	if text == "" {
		return llm.Message{}, g.wrap(llm.ErrEmptyResponse)
	}
	return llm.NewAssistantMessage(text), nil
}

func (g *GeminiClient) wrap(err error) error {
	return &llm.RemoteServiceError{Provider: g.Provider(), Model: g.model, Err: err}
}

// extract joins the answer text of the first candidate, skipping thought parts.
func extract(resp *genai.GenerateContentResponse) (string, *llm.Usage) {
	if resp == nil {
		return "", nil
	}

	var usage *llm.Usage
	if u := resp.UsageMetadata; u != nil {
		usage = &llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		return "", usage
	}
	candidate := resp.Candidates[0]
	if usage != nil {
		usage.StopReason = normalizeStopReason(string(candidate.FinishReason))
	}
	if candidate.Content == nil {
		return "", usage
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), usage
}

// convertMessages converts message list to GenAI format. System messages
// become the SystemInstruction.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	system, turns := llm.SplitSystem(messages)

	var systemInstruction *genai.Content
	if system != "" {
		systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		if msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents, systemInstruction
}

func normalizeStopReason(reason string) string {
	switch strings.ToUpper(reason) {
	case "STOP", "":
		return llm.StopReasonStop
	case "MAX_TOKENS":
		return llm.StopReasonLength
	default:
		return strings.ToLower(reason)
	}
}

// IsTransientError implements the llm.LLMClient interface
func (g *GeminiClient) IsTransientError(err error) bool {
	return llm.ContainsAny(err, llm.CommonTransientMarkers...)
}
