package web

import (
	"fmt"

	"agentapi/pkg/api"
	"agentapi/pkg/channels"
	"agentapi/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// DefaultPort is used when the web entry of config.json names none.
const DefaultPort = 3002

// WebFactory builds the HTTP API channel.
type WebFactory struct{}

func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error) {
	cfg := WebConfig{Port: DefaultPort}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse web config: %w", err)
		}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid web port %d", cfg.Port)
	}
	return NewWebChannel(cfg), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
