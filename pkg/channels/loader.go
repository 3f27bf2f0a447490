package channels

import (
	"log/slog"
	"sort"

	"agentapi/pkg/api"
	"agentapi/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// Registrar receives the channels built by LoadFromConfig.
type Registrar interface {
	Register(c api.Channel)
}

// LoadFromConfig builds one channel per config entry and registers it.
// Unknown kinds and factory failures are logged and skipped; the number of
// registered channels is returned.
func LoadFromConfig(r Registrar, configs map[string]jsoniter.RawMessage, system *config.SystemConfig) int {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	loaded := 0
	for _, name := range names {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name)
			continue
		}

		channel, err := factory.Create(configs[name], system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}

		// A factory may decline without error (e.g. disabled in config)
		if channel == nil {
			continue
		}

		r.Register(channel)
		loaded++
		slog.Info("Channel registered", "name", name)
	}
	return loaded
}
