package telegram

import (
	"context"
	"deskpilot/pkg/api"
	"deskpilot/pkg/channels"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig holds the bot credentials and who may drive the desktop.
type TelegramConfig struct {
	Token string `json:"token"` // The secret BOT API string provided by @BotFather
	// AllowedUserIDs lists the Telegram user ids whose messages are executed.
	// Anybody else is told they are not allowed. Must not be empty.
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
	// APIEndpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	APIEndpoint string `json:"api_endpoint,omitempty"`
}

// TelegramChannel serves commands sent to a Telegram bot by long polling.
type TelegramChannel struct {
	config       TelegramConfig
	bot          *tgbotapi.BotAPI
	messageLimit int
	stopCtx      context.Context    // aborts the long-polling HTTP request
	stopCancel   context.CancelFunc // triggers the abort
	done         chan struct{}
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int) (*TelegramChannel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Tie every dial to stopCtx so an in-flight getUpdates dies with Stop
	// instead of lingering and causing 409 Conflict on restart.
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	botHttpClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, botHttpClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName, "allowed_users", len(cfg.AllowedUserIDs))

	if msgLimit <= 0 {
		msgLimit = 4000
	}
	return &TelegramChannel{
		config:       cfg,
		bot:          bot,
		messageLimit: msgLimit,
		stopCtx:      ctx,
		stopCancel:   cancel,
		done:         make(chan struct{}),
	}, nil
}

// ID returns the unique platform identifier "telegram".
func (t *TelegramChannel) ID() string {
	return "telegram"
}

// Start runs the polling loop in the background. Updates are handled one
// after another, so a chat never has two commands in flight.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	go func() {
		defer close(t.done)
		offset := 0
		for {
			select {
			case <-t.stopCtx.Done():
				return
			default:
			}

			reqConfig := tgbotapi.NewUpdate(offset)
			reqConfig.Timeout = 60

			updates, err := t.bot.GetUpdates(reqConfig)
			if err != nil {
				select {
				case <-t.stopCtx.Done():
					return
				case <-time.After(3 * time.Second):
					slog.Debug("Failed to get telegram updates", "error", err)
					continue
				}
			}

			for _, update := range updates {
				if update.UpdateID < offset {
					continue
				}
				offset = update.UpdateID + 1
				t.handleUpdate(ctx, update)
			}
		}
	}()
	return nil
}

func (t *TelegramChannel) handleUpdate(ctx api.ChannelContext, update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.From == nil || m.Text == "" {
		return
	}

	session := api.SessionContext{
		ChannelID: t.ID(),
		UserID:    strconv.FormatInt(m.From.ID, 10),
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		Username:  m.From.UserName,
	}

	if !t.allowed(m.From.ID) {
		slog.Warn("Telegram user not allowed", "user_id", m.From.ID, "username", m.From.UserName)
		if err := t.Send(session, "Sorry, you are not allowed to control this computer."); err != nil {
			slog.Error("Failed to send refusal", "error", err)
		}
		return
	}

	ctx.OnMessage(t.ID(), &api.UnifiedMessage{
		Session: session,
		Content: m.Text,
		Raw:     update,
		Ctx:     t.stopCtx,
	})
}

func (t *TelegramChannel) allowed(userID int64) bool {
	return slices.Contains(t.config.AllowedUserIDs, userID)
}

// SendSignal implements the api.SignalingChannel interface
func (t *TelegramChannel) SendSignal(session api.SessionContext, signal string) error {
	if signal != api.SignalThinking {
		return nil
	}
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = t.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel()

	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

func (t *TelegramChannel) Send(session api.SessionContext, message string) error {
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", session.ChatID)
	}

	for i, chunk := range channels.SplitMessage(message, t.messageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk %d failed: %w", i, err)
		}
	}
	return nil
}
