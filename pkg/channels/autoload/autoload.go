// Package autoload registers the channels served by the serve command.
package autoload

import (
	_ "deskpilot/pkg/channels/discord"
	_ "deskpilot/pkg/channels/telegram"
	_ "deskpilot/pkg/channels/web"
)
