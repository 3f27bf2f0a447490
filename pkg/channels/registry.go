package channels

import (
	"sort"
	"sync"

	"agentapi/pkg/api"
	"agentapi/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// ChannelFactory builds one kind of channel from its config.json entry.
type ChannelFactory interface {
	Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error)
}

// FactoryFunc adapts a function to ChannelFactory.
type FactoryFunc func(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error)

func (f FactoryFunc) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error) {
	return f(rawConfig, system)
}

var (
	registryMu      sync.RWMutex
	channelRegistry = make(map[string]ChannelFactory)
)

// RegisterChannel adds a factory under name. Channel packages call it from
// init().
func RegisterChannel(name string, factory ChannelFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered ChannelFactory by platform name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := channelRegistry[name]
	return f, ok
}

// Names lists the registered channel kinds, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(channelRegistry))
	for n := range channelRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
