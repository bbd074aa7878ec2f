package channels

import (
	"deskpilot/pkg/api"
	"deskpilot/pkg/config"
	"slices"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// ChannelFactory builds a served front-end from its raw config.json entry.
type ChannelFactory interface {
	// Create may return a nil channel and nil error when the entry is
	// present but disabled.
	Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error)
}

var (
	channelRegistry = make(map[string]ChannelFactory)
	registryMu      sync.RWMutex
)

// RegisterChannel adds a factory; called from the channel packages' init.
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

// Registered lists the registered channel names, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(channelRegistry))
	for name := range channelRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
