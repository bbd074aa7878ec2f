package discord

import (
	"deskpilot/pkg/api"
	"deskpilot/pkg/channels"
	"deskpilot/pkg/config"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DiscordFactory creates the Discord bot front-end.
type DiscordFactory struct{}

// Create implements channels.ChannelFactory. The token may be a $VAR
// reference or come from DISCORD_BOT_TOKEN.
func (f *DiscordFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error) {
	if !channels.Enabled(rawConfig) {
		return nil, nil
	}

	var cfg DiscordConfig
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse discord config: %w", err)
	}
	cfg.Token = strings.TrimSpace(os.ExpandEnv(cfg.Token))
	if cfg.Token == "" {
		cfg.Token = os.Getenv("DISCORD_BOT_TOKEN")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing discord token")
	}
	if len(cfg.AllowedUserIDs) == 0 {
		return nil, fmt.Errorf("discord channel requires allowed_user_ids")
	}

	ch, err := NewDiscordChannel(cfg)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func init() {
	channels.RegisterChannel("discord", &DiscordFactory{})
}
