package web

import (
	"deskpilot/pkg/api"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyingContext answers every message the way the command handler would.
type replyingContext struct {
	ch       *WebChannel
	received chan *api.UnifiedMessage
}

func (c *replyingContext) SendReply(session api.SessionContext, content string) error {
	return c.ch.Send(session, content)
}

func (c *replyingContext) SendSignal(session api.SessionContext, signal string) error {
	return c.ch.SendSignal(session, signal)
}

func (c *replyingContext) OnMessage(channelID string, msg *api.UnifiedMessage) {
	c.received <- msg
	c.SendSignal(msg.Session, api.SignalThinking)
	c.SendReply(msg.Session, "Battery is at 87% (Charging)")
}

func dial(t *testing.T) (*websocket.Conn, *replyingContext, func()) {
	t.Helper()
	ch := NewWebChannel(WebConfig{})
	ctx := &replyingContext{ch: ch, received: make(chan *api.UnifiedMessage, 4)}
	srv := httptest.NewServer(ch.Handler(ctx))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	return conn, ctx, func() {
		conn.Close()
		srv.Close()
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) OutgoingMessage {
	t.Helper()
	var out OutgoingMessage
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestWebSocketRoundTrip(t *testing.T) {
	conn, ctx, done := dial(t)
	defer done()

	hello := readFrame(t, conn)
	require.Equal(t, "hello", hello.Type)
	require.NotEmpty(t, hello.Session)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"battery"}`)))

	assert.Equal(t, OutgoingMessage{Type: "signal", Value: api.SignalThinking}, readFrame(t, conn))
	assert.Equal(t, OutgoingMessage{Type: "reply", Text: "Battery is at 87% (Charging)"}, readFrame(t, conn))

	msg := <-ctx.received
	assert.Equal(t, "battery", msg.Content)
	assert.Equal(t, "web", msg.Session.ChannelID)
	assert.Equal(t, hello.Session, msg.Session.UserID)
	assert.NotNil(t, msg.Ctx)
}

func TestWebSocketPlainText(t *testing.T) {
	conn, ctx, done := dial(t)
	defer done()

	readFrame(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("what time is it")))
	readFrame(t, conn)
	readFrame(t, conn)

	msg := <-ctx.received
	assert.Equal(t, "what time is it", msg.Content)
}

func TestSendToUnknownSession(t *testing.T) {
	ch := NewWebChannel(WebConfig{})
	require.Error(t, ch.Send(api.SessionContext{UserID: "gone"}, "hi"))
}

func TestFactory(t *testing.T) {
	f := &WebFactory{}

	c, err := f.Create([]byte(`{"port": 9090}`), nil)
	require.NoError(t, err)
	require.Equal(t, 9090, c.(*WebChannel).config.Port)

	c, err = f.Create(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 8080, c.(*WebChannel).config.Port)

	c, err = f.Create([]byte(`{"enabled": false}`), nil)
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = f.Create([]byte(`{"port": 70000}`), nil)
	require.Error(t, err)
}

func TestHealthzAndCORS(t *testing.T) {
	ch := NewWebChannel(WebConfig{AllowedOrigins: []string{"http://ui.local"}})
	srv := httptest.NewServer(ch.Handler(&replyingContext{ch: ch, received: make(chan *api.UnifiedMessage, 1)}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
	assert.Equal(t, "http://ui.local", resp.Header.Get("Access-Control-Allow-Origin"))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://ui.local"}})
	require.NoError(t, err)
	conn.Close()
}
