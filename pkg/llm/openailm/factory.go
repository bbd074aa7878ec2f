package openailm

import (
	"deskpilot/pkg/config"
	"deskpilot/pkg/llm"
	"log/slog"
)

// OpenAIFactory creates one client per configured model, all sharing the first API key.
type OpenAIFactory struct{}

// Create implements llm.ProviderFactory.
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	// local OpenAI-compatible servers accept any key
	apiKey := "none"
	if keys := cfg.ResolveAPIKeys("OPENAI_API_KEY"); len(keys) > 0 {
		apiKey = keys[0]
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		client, err := NewClient("openai", apiKey, model, cfg.BaseURL, cfg.Options)
		if err != nil {
			slog.Error("Failed to create OpenAI client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
