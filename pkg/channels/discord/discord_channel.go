package discord

import (
	"context"
	"deskpilot/pkg/api"
	"deskpilot/pkg/channels"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// messageLimit is Discord's cap on one message, in characters.
const messageLimit = 2000

// DiscordConfig holds the bot token and who may drive the desktop.
type DiscordConfig struct {
	Token string `json:"token"`
	// AllowedUserIDs lists the Discord user ids (snowflakes) whose messages
	// are executed. Must not be empty.
	AllowedUserIDs []string `json:"allowed_user_ids"`
}

// session is the part of *discordgo.Session the channel uses.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// DiscordChannel serves commands sent to a Discord bot, either as direct
// messages or as guild messages that mention the bot.
type DiscordChannel struct {
	config  DiscordConfig
	session session

	mu       sync.Mutex
	selfID   string
	handlers []func()

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDiscordChannel(cfg DiscordConfig) (*DiscordChannel, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return newDiscordChannel(cfg, s), nil
}

func newDiscordChannel(cfg DiscordConfig, s session) *DiscordChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &DiscordChannel{
		config:  cfg,
		session: s,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *DiscordChannel) ID() string {
	return "discord"
}

// Start registers the event handlers and opens the gateway connection.
// discordgo delivers events on its own goroutines.
func (d *DiscordChannel) Start(ctx api.ChannelContext) error {
	d.mu.Lock()
	d.handlers = append(d.handlers,
		d.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			d.onReady(r)
		}),
		d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			d.handleMessage(ctx, m.Message)
		}),
	)
	d.mu.Unlock()

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

func (d *DiscordChannel) onReady(r *discordgo.Ready) {
	if r == nil || r.User == nil {
		return
	}
	d.mu.Lock()
	d.selfID = r.User.ID
	d.mu.Unlock()
	slog.Info("Discord bot connected", "username", r.User.Username, "allowed_users", len(d.config.AllowedUserIDs))
}

func (d *DiscordChannel) self() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selfID
}

func (d *DiscordChannel) handleMessage(ctx api.ChannelContext, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}

	text, ok := d.addressed(m)
	if !ok || text == "" {
		return
	}

	sess := api.SessionContext{
		ChannelID: d.ID(),
		UserID:    m.Author.ID,
		ChatID:    m.ChannelID,
		Username:  m.Author.Username,
	}

	if !slices.Contains(d.config.AllowedUserIDs, m.Author.ID) {
		slog.Warn("Discord user not allowed", "user_id", m.Author.ID, "username", m.Author.Username)
		if err := d.Send(sess, "Sorry, you are not allowed to control this computer."); err != nil {
			slog.Error("Failed to send refusal", "error", err)
		}
		return
	}

	ctx.OnMessage(d.ID(), &api.UnifiedMessage{
		Session: sess,
		Content: text,
		Raw:     m,
		Ctx:     d.ctx,
	})
}

// addressed reports whether m is meant for the bot and returns its text
// without the mention. Direct messages always are; guild messages only
// when they mention the bot.
func (d *DiscordChannel) addressed(m *discordgo.Message) (string, bool) {
	text := strings.TrimSpace(m.Content)
	if m.GuildID == "" {
		return text, true
	}

	self := d.self()
	if self == "" {
		return "", false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == self {
			text = strings.ReplaceAll(text, "<@"+self+">", "")
			text = strings.ReplaceAll(text, "<@!"+self+">", "")
			return strings.TrimSpace(text), true
		}
	}
	return "", false
}

// SendSignal implements the api.SignalingChannel interface
func (d *DiscordChannel) SendSignal(sess api.SessionContext, signal string) error {
	if signal != api.SignalThinking {
		return nil
	}
	return d.session.ChannelTyping(sess.ChatID)
}

func (d *DiscordChannel) Send(sess api.SessionContext, message string) error {
	for i, chunk := range channels.SplitMessage(message, messageLimit) {
		if _, err := d.session.ChannelMessageSend(sess.ChatID, chunk); err != nil {
			return fmt.Errorf("discord send chunk %d failed: %w", i, err)
		}
	}
	return nil
}

func (d *DiscordChannel) Stop() error {
	d.cancel()

	d.mu.Lock()
	for _, remove := range d.handlers {
		remove()
	}
	d.handlers = nil
	d.mu.Unlock()

	return d.session.Close()
}
