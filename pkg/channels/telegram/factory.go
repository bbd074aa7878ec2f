package telegram

import (
	"deskpilot/pkg/api"
	"deskpilot/pkg/channels"
	"deskpilot/pkg/config"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory creates the Telegram bot front-end.
type TelegramFactory struct{}

// Create implements channels.ChannelFactory.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error) {
	if !channels.Enabled(rawConfig) {
		return nil, nil
	}

	var tgCfg TelegramConfig
	if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}
	// an empty allow-list is rejected, never treated as open
	if len(tgCfg.AllowedUserIDs) == 0 {
		return nil, fmt.Errorf("telegram channel requires allowed_user_ids")
	}

	if system == nil {
		system = config.DefaultSystemConfig()
	}
	ch, err := NewTelegramChannel(tgCfg, system.TelegramMessageLimit)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
