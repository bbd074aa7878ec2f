package gateway

import (
	"deskpilot/pkg/api"
	"deskpilot/pkg/monitor"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	id       string
	startErr error
	started  bool
	stopped  bool
	sent     []string
	signals  []string
	ctx      api.ChannelContext
}

func (c *recordingChannel) ID() string { return c.id }
func (c *recordingChannel) Start(ctx api.ChannelContext) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.ctx = ctx
	c.started = true
	return nil
}
func (c *recordingChannel) Stop() error {
	c.stopped = true
	return nil
}
func (c *recordingChannel) Send(session api.SessionContext, message string) error {
	c.sent = append(c.sent, message)
	return nil
}

type signalingChannel struct{ recordingChannel }

func (c *signalingChannel) SendSignal(session api.SessionContext, signal string) error {
	c.signals = append(c.signals, signal)
	return nil
}

type recordingMonitor struct {
	mu       sync.Mutex
	started  bool
	messages []monitor.MonitorMessage
}

func (m *recordingMonitor) Start() error { m.started = true; return nil }
func (m *recordingMonitor) Stop() error  { return nil }
func (m *recordingMonitor) OnMessage(msg monitor.MonitorMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// echoHandler replies with the message content.
type echoHandler struct {
	responder api.MessageResponder
}

func (h *echoHandler) SetResponder(r api.MessageResponder) { h.responder = r }
func (h *echoHandler) OnMessage(msg *api.UnifiedMessage) {
	h.responder.SendSignal(msg.Session, api.SignalThinking)
	h.responder.SendReply(msg.Session, "echo: "+msg.Content)
}

func TestBuildRoutesMessages(t *testing.T) {
	ch := &signalingChannel{recordingChannel{id: "web"}}
	mon := &recordingMonitor{}

	gw, err := NewGatewayBuilder().
		WithMonitor(mon).
		WithChannel(ch).
		WithHandler(&echoHandler{}).
		Build()
	require.NoError(t, err)
	require.True(t, ch.started)
	require.True(t, mon.started)

	ch.ctx.OnMessage("web", &api.UnifiedMessage{
		Session: api.SessionContext{ChannelID: "web", Username: "alice"},
		Content: "battery",
	})

	assert.Equal(t, []string{"echo: battery"}, ch.sent)
	assert.Equal(t, []string{api.SignalThinking}, ch.signals)
	require.Len(t, mon.messages, 2)
	assert.Equal(t, monitor.MessageTypeUser, mon.messages[0].MessageType)
	assert.Equal(t, monitor.MessageTypeAssistant, mon.messages[1].MessageType)

	gw.StopAll()
	assert.True(t, ch.stopped)
}

func TestSignalIgnoredByPlainChannel(t *testing.T) {
	gw := NewGatewayManager()
	ch := &recordingChannel{id: "console"}
	gw.Register(ch)

	require.NoError(t, gw.SendSignal(api.SessionContext{ChannelID: "console"}, api.SignalThinking))
	require.Error(t, gw.SendReply(api.SessionContext{ChannelID: "nope"}, "hi"))
}

func TestStartFailureStopsStartedChannels(t *testing.T) {
	first := &recordingChannel{id: "web"}
	second := &recordingChannel{id: "telegram", startErr: errors.New("bad token")}

	_, err := NewGatewayBuilder().WithChannel(first, second).Build()
	require.ErrorContains(t, err, "telegram")
	assert.True(t, first.stopped)
}

func TestBuildWithoutChannels(t *testing.T) {
	_, err := NewGatewayBuilder().Build()
	require.Error(t, err)
}

func TestMessageWithoutHandlerIsDropped(t *testing.T) {
	gw := NewGatewayManager()
	assert.NotPanics(t, func() {
		gw.OnMessage("web", &api.UnifiedMessage{Content: "hi"})
	})
}
