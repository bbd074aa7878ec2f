package telegram

import (
	"deskpilot/pkg/api"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI answers the few Bot API methods the channel uses.
type fakeBotAPI struct {
	mu      sync.Mutex
	sent    []string
	actions int
	served  bool
	updates string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch path.Base(r.URL.Path) {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"pilot","username":"pilot_bot"}}`)
	case "getUpdates":
		if !f.served {
			f.served = true
			fmt.Fprintf(w, `{"ok":true,"result":%s}`, f.updates)
			return
		}
		f.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		f.mu.Lock()
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	case "sendMessage":
		f.sent = append(f.sent, r.Form.Get("chat_id")+":"+r.Form.Get("text"))
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	case "sendChatAction":
		f.actions++
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func (f *fakeBotAPI) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type recordingContext struct {
	ch       *TelegramChannel
	received chan *api.UnifiedMessage
}

func (c *recordingContext) SendReply(session api.SessionContext, content string) error {
	return c.ch.Send(session, content)
}
func (c *recordingContext) SendSignal(session api.SessionContext, signal string) error {
	return c.ch.SendSignal(session, signal)
}
func (c *recordingContext) OnMessage(channelID string, msg *api.UnifiedMessage) {
	c.SendSignal(msg.Session, api.SignalThinking)
	c.SendReply(msg.Session, "Battery is at 87% (Charging)")
	c.received <- msg
}

const twoUpdates = `[
	{"update_id":10,"message":{"message_id":1,"date":0,"text":"battery","from":{"id":7,"is_bot":false,"first_name":"A","username":"alice"},"chat":{"id":7,"type":"private"}}},
	{"update_id":11,"message":{"message_id":2,"date":0,"text":"open calculator","from":{"id":9,"is_bot":false,"first_name":"M","username":"mallory"},"chat":{"id":9,"type":"private"}}}
]`

func TestTelegramAllowListAndReplies(t *testing.T) {
	fake := &fakeBotAPI{updates: twoUpdates}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ch, err := NewTelegramChannel(TelegramConfig{
		Token:          "123:abc",
		AllowedUserIDs: []int64{7},
		APIEndpoint:    srv.URL + "/bot%s/%s",
	}, 4000)
	require.NoError(t, err)

	ctx := &recordingContext{ch: ch, received: make(chan *api.UnifiedMessage, 2)}
	require.NoError(t, ch.Start(ctx))

	select {
	case msg := <-ctx.received:
		assert.Equal(t, "battery", msg.Content)
		assert.Equal(t, "7", msg.Session.ChatID)
		assert.Equal(t, "alice", msg.Session.Username)
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered")
	}

	require.Eventually(t, func() bool { return len(fake.sentMessages()) == 2 }, 5*time.Second, 10*time.Millisecond)
	sent := fake.sentMessages()
	assert.Equal(t, "7:Battery is at 87% (Charging)", sent[0])
	assert.True(t, strings.HasPrefix(sent[1], "9:Sorry, you are not allowed"))

	require.NoError(t, ch.Stop())
	select {
	case <-ch.done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling loop did not stop")
	}
	assert.Empty(t, ctx.received)
}

func TestFactoryValidation(t *testing.T) {
	f := &TelegramFactory{}

	_, err := f.Create([]byte(`{"allowed_user_ids":[1]}`), nil)
	require.ErrorContains(t, err, "token")

	_, err = f.Create([]byte(`{"token":"x"}`), nil)
	require.ErrorContains(t, err, "allowed_user_ids")

	c, err := f.Create([]byte(`{"enabled":false,"token":"x"}`), nil)
	require.NoError(t, err)
	require.Nil(t, c)
}
