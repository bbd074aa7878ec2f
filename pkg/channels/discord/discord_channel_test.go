package discord

import (
	"deskpilot/pkg/api"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu       sync.Mutex
	opened   bool
	closed   bool
	handlers int
	removed  int
	sent     []string
	typing   []string
}

func (f *fakeSession) Open() error {
	f.opened = true
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) AddHandler(handler interface{}) func() {
	f.handlers++
	return func() { f.removed++ }
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, channelID+":"+content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	f.typing = append(f.typing, channelID)
	return nil
}

type recordingContext struct {
	received []*api.UnifiedMessage
}

func (c *recordingContext) SendReply(api.SessionContext, string) error  { return nil }
func (c *recordingContext) SendSignal(api.SessionContext, string) error { return nil }
func (c *recordingContext) OnMessage(channelID string, msg *api.UnifiedMessage) {
	c.received = append(c.received, msg)
}

func newTestChannel() (*DiscordChannel, *fakeSession) {
	fake := &fakeSession{}
	ch := newDiscordChannel(DiscordConfig{Token: "x", AllowedUserIDs: []string{"100"}}, fake)
	ch.onReady(&discordgo.Ready{User: &discordgo.User{ID: "999", Username: "pilot"}})
	return ch, fake
}

func TestDirectMessageFromAllowedUser(t *testing.T) {
	ch, _ := newTestChannel()
	ctx := &recordingContext{}

	ch.handleMessage(ctx, &discordgo.Message{
		ChannelID: "dm-1",
		Content:   "  take a screenshot ",
		Author:    &discordgo.User{ID: "100", Username: "alice"},
	})

	require.Len(t, ctx.received, 1)
	msg := ctx.received[0]
	assert.Equal(t, "take a screenshot", msg.Content)
	assert.Equal(t, "dm-1", msg.Session.ChatID)
	assert.Equal(t, "100", msg.Session.UserID)
	assert.Equal(t, "discord", msg.Session.ChannelID)
}

func TestGuildMessagesNeedMention(t *testing.T) {
	ch, _ := newTestChannel()
	ctx := &recordingContext{}

	ch.handleMessage(ctx, &discordgo.Message{
		GuildID:   "g",
		ChannelID: "general",
		Content:   "battery",
		Author:    &discordgo.User{ID: "100"},
	})
	assert.Empty(t, ctx.received)

	ch.handleMessage(ctx, &discordgo.Message{
		GuildID:   "g",
		ChannelID: "general",
		Content:   "<@999> battery",
		Author:    &discordgo.User{ID: "100"},
		Mentions:  []*discordgo.User{{ID: "999"}},
	})
	require.Len(t, ctx.received, 1)
	assert.Equal(t, "battery", ctx.received[0].Content)
}

func TestBotsAndStrangers(t *testing.T) {
	ch, fake := newTestChannel()
	ctx := &recordingContext{}

	ch.handleMessage(ctx, &discordgo.Message{ChannelID: "dm", Content: "hi", Author: &discordgo.User{ID: "5", Bot: true}})
	assert.Empty(t, fake.sent)

	ch.handleMessage(ctx, &discordgo.Message{ChannelID: "dm-2", Content: "open calculator", Author: &discordgo.User{ID: "666", Username: "mallory"}})
	assert.Empty(t, ctx.received)
	require.Len(t, fake.sent, 1)
	assert.True(t, strings.HasPrefix(fake.sent[0], "dm-2:Sorry, you are not allowed"))
}

func TestSendSplitsAndSignals(t *testing.T) {
	ch, fake := newTestChannel()
	sess := api.SessionContext{ChatID: "c"}

	require.NoError(t, ch.Send(sess, strings.Repeat("a", messageLimit+1)))
	assert.Len(t, fake.sent, 2)

	require.NoError(t, ch.SendSignal(sess, api.SignalThinking))
	require.NoError(t, ch.SendSignal(sess, api.SignalIdle))
	assert.Equal(t, []string{"c"}, fake.typing)
}

func TestStartStop(t *testing.T) {
	ch, fake := newTestChannel()
	require.NoError(t, ch.Start(&recordingContext{}))
	assert.True(t, fake.opened)
	assert.Equal(t, 2, fake.handlers)

	require.NoError(t, ch.Stop())
	assert.True(t, fake.closed)
	assert.Equal(t, 2, fake.removed)
	assert.Error(t, ch.ctx.Err())
}

func TestFactoryValidation(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	f := &DiscordFactory{}

	_, err := f.Create([]byte(`{"allowed_user_ids":["1"]}`), nil)
	require.ErrorContains(t, err, "token")

	_, err = f.Create([]byte(`{"token":"x"}`), nil)
	require.ErrorContains(t, err, "allowed_user_ids")

	c, err := f.Create([]byte(`{"enabled":false}`), nil)
	require.NoError(t, err)
	require.Nil(t, c)

	t.Setenv("DISCORD_BOT_TOKEN", "from-env")
	c, err = f.Create([]byte(`{"allowed_user_ids":["1"]}`), nil)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "discord", c.ID())
}
