package gemini

import (
	"context"
	"fmt"

	"agentapi/pkg/config"
	"agentapi/pkg/llm"
)

// GeminiFactory handles creation of Gemini Clients
type GeminiFactory struct{}

// Create implements ProviderFactory
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	keys := cfg.Keys("GOOGLE_API_KEY")
	if len(keys) == 0 {
		return nil, fmt.Errorf("gemini: no api key (set api_keys or GOOGLE_API_KEY)")
	}

	opts := Options{BaseURL: cfg.BaseURL, Debug: sys.DebugResponses}
	if t, ok := cfg.OptionFloat("temperature"); ok {
		temp := float32(t)
		opts.Temperature = &temp
	}

	var clients []llm.LLMClient
	// Cartesian Product: Models x Keys (prioritize models)
	for _, model := range cfg.Models {
		for _, key := range keys {
			client, err := NewGeminiClient(context.Background(), key, model, opts)
			if err != nil {
				return nil, err
			}
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
