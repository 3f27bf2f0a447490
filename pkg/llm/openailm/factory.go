package openailm

import (
	"fmt"

	"agentapi/pkg/config"
	"agentapi/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI Clients
type OpenAIFactory struct{}

// Create implements ProviderFactory
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	keys := cfg.Keys("OPENAI_API_KEY")
	// OpenAI-compatible local servers accept any key; only the hosted API needs one.
	if len(keys) == 0 && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: no api key (set api_keys or OPENAI_API_KEY)")
	}
	apiKey := ""
	if len(keys) > 0 {
		apiKey = keys[0]
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		client := NewClient("openai", apiKey, model, cfg.BaseURL, cfg.Options, nil)
		client.SetDebug(sys.DebugResponses)
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
