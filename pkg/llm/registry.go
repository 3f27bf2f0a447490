package llm

import (
	"os"
	"sort"
	"sync"

	"agentapi/pkg/config"
)

// ProviderGroupConfig describes one entry of the "llm" array in config.json.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Keys returns the configured API keys, falling back to the named
// environment variable when none are set.
func (g ProviderGroupConfig) Keys(envVar string) []string {
	if len(g.APIKeys) > 0 {
		return g.APIKeys
	}
	if envVar == "" {
		return nil
	}
	if key := os.Getenv(envVar); key != "" {
		return []string{key}
	}
	return nil
}

// OptionString reads a string option, "" when absent.
func (g ProviderGroupConfig) OptionString(name string) string {
	s, _ := g.Options[name].(string)
	return s
}

// OptionFloat reads a numeric option. JSON numbers decode as float64.
func (g ProviderGroupConfig) OptionFloat(name string) (float64, bool) {
	switch v := g.Options[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// ProviderFactory builds the atomic clients of one provider group.
type ProviderFactory interface {
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]LLMClient, error)
}

var (
	providerMu       sync.RWMutex
	providerRegistry = make(map[string]ProviderFactory)
)

// RegisterProvider registers a factory under name. Called from init().
func RegisterProvider(name string, factory ProviderFactory) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered under name.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	f, ok := providerRegistry[name]
	return f, ok
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
