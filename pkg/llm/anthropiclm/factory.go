package anthropiclm

import (
	"deskpilot/pkg/config"
	"deskpilot/pkg/llm"
	"fmt"
)

// AnthropicFactory creates one client per model and key pair, models first.
type AnthropicFactory struct{}

// Create implements llm.ProviderFactory.
func (f *AnthropicFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	keys := cfg.ResolveAPIKeys("ANTHROPIC_API_KEY")
	if len(keys) == 0 {
		return nil, fmt.Errorf("anthropic requires at least one api key (api_keys or ANTHROPIC_API_KEY)")
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		for _, key := range keys {
			clients = append(clients, NewClient(key, model, cfg.BaseURL, cfg.Options))
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("anthropic", &AnthropicFactory{})
}
