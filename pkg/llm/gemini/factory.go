package gemini

import (
	"context"
	"deskpilot/pkg/config"
	"deskpilot/pkg/llm"
	"fmt"
	"log/slog"
)

// GeminiFactory creates one client per model and key pair, models first.
type GeminiFactory struct{}

// Create implements llm.ProviderFactory.
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	keys := cfg.ResolveAPIKeys("GEMINI_API_KEY")
	if len(keys) == 0 {
		return nil, fmt.Errorf("gemini requires at least one api key (api_keys or GEMINI_API_KEY)")
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		for _, key := range keys {
			client, err := NewGeminiClient(context.Background(), key, model, cfg.Options)
			if err != nil {
				slog.Error("Failed to create Gemini client", "model", model, "error", err)
				continue
			}
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
