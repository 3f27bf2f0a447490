package anthropic

import (
	"fmt"

	"agentapi/pkg/config"
	"agentapi/pkg/llm"
)

// Factory handles creation of Anthropic clients
type Factory struct{}

// Create implements llm.ProviderFactory
func (f *Factory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	keys := cfg.Keys("ANTHROPIC_API_KEY")
	if len(keys) == 0 {
		return nil, fmt.Errorf("anthropic: no api key (set api_keys or ANTHROPIC_API_KEY)")
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		for _, key := range keys {
			client := NewClient(key, model, cfg.BaseURL, cfg.Options, nil)
			client.SetDebug(sys.DebugResponses)
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("anthropic", &Factory{})
}
