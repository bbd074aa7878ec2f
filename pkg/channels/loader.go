package channels

import (
	"deskpilot/pkg/api"
	"deskpilot/pkg/config"
	"log/slog"
	"slices"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadFromConfig creates a channel for every configured entry with a known
// factory. Unknown or broken entries are logged and skipped so one bad
// channel does not keep the others from serving.
func LoadFromConfig(configs map[string]jsoniter.RawMessage, system *config.SystemConfig) []api.Channel {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	slices.Sort(names)

	var result []api.Channel
	for _, name := range names {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name, "known", Registered())
			continue
		}

		channel, err := factory.Create(configs[name], system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}
		if channel == nil {
			slog.Info("Channel disabled", "name", name)
			continue
		}

		result = append(result, channel)
		slog.Info("Channel created", "name", name)
	}
	return result
}

// Enabled reads the optional "enabled" flag shared by all channel configs.
// A missing flag means enabled.
func Enabled(raw jsoniter.RawMessage) bool {
	var probe struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Enabled == nil {
		return true
	}
	return *probe.Enabled
}
