package llm

import (
	"deskpilot/pkg/config"
	"os"
	"strings"
	"sync"
)

// ProviderGroupConfig is one entry of the "llm" array in config.json.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// ResolveAPIKeys expands $VAR references in the configured keys and drops
// the ones that end up empty. With no keys configured, envVar is consulted.
func (c ProviderGroupConfig) ResolveAPIKeys(envVar string) []string {
	var keys []string
	for _, k := range c.APIKeys {
		if k = strings.TrimSpace(os.ExpandEnv(k)); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 && envVar != "" {
		if k := strings.TrimSpace(os.Getenv(envVar)); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ProviderFactory builds the atomic clients of one provider group.
type ProviderFactory interface {
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]LLMClient, error)
}

var (
	providerRegistry = make(map[string]ProviderFactory)
	registryMu       sync.RWMutex
)

// RegisterProvider registers a factory under a provider type name.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered for name.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := providerRegistry[name]
	return f, ok
}
