package handler

import (
	"context"
	"deskpilot/pkg/api"
	"deskpilot/pkg/command"
	"deskpilot/pkg/dispatcher"
	"deskpilot/pkg/monitor"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	outcome    dispatcher.Outcome
	texts      []string
	requestIDs []string
}

func (d *fakeDispatcher) Handle(ctx context.Context, text string) dispatcher.Outcome {
	d.texts = append(d.texts, text)
	d.requestIDs = append(d.requestIDs, monitor.RequestID(ctx))
	return d.outcome
}

type fakeResponder struct {
	replies []string
	signals []string
}

func (r *fakeResponder) SendReply(session api.SessionContext, content string) error {
	r.replies = append(r.replies, content)
	return nil
}

func (r *fakeResponder) SendSignal(session api.SessionContext, signal string) error {
	r.signals = append(r.signals, signal)
	return nil
}

func newHandler(outcome dispatcher.Outcome) (*CommandHandler, *fakeDispatcher, *fakeResponder) {
	d := &fakeDispatcher{outcome: outcome}
	r := &fakeResponder{}
	h := NewCommandHandler(d)
	h.SetResponder(r)
	return h, d, r
}

func TestOnMessageDispatchesAndRenders(t *testing.T) {
	h, d, r := newHandler(dispatcher.Outcome{OK: false, Message: "Unknown app: chrome. Try calculator."})

	msg := &api.UnifiedMessage{Session: api.SessionContext{ChannelID: "console"}, Content: "open chrome"}
	h.OnMessage(msg)

	assert.Equal(t, []string{"open chrome"}, d.texts)
	assert.Equal(t, []string{api.SignalThinking}, r.signals)
	assert.Equal(t, []string{"Error: Unknown app: chrome. Try calculator."}, r.replies)

	require.Len(t, msg.RequestID, 8)
	assert.Equal(t, msg.RequestID, d.requestIDs[0])
}

func TestRequestIDKept(t *testing.T) {
	h, d, _ := newHandler(dispatcher.Outcome{OK: true, Message: "ok"})
	h.OnMessage(&api.UnifiedMessage{Content: "battery", RequestID: "fixed"})
	assert.Equal(t, []string{"fixed"}, d.requestIDs)
}

func TestHelpSkipsDispatcher(t *testing.T) {
	h, d, r := newHandler(dispatcher.Outcome{OK: true})
	h.OnMessage(&api.UnifiedMessage{Content: "/help"})

	assert.Empty(t, d.texts)
	require.Len(t, r.replies, 1)
	assert.Equal(t, HelpText(command.Default()), r.replies[0])
	assert.Contains(t, r.replies[0], "Open calculator")
	assert.Contains(t, r.replies[0], "Take a screenshot")
}

func TestUnknownSlashCommand(t *testing.T) {
	h, d, r := newHandler(dispatcher.Outcome{OK: true})
	h.OnMessage(&api.UnifiedMessage{Content: "/reboot now"})

	assert.Empty(t, d.texts)
	assert.Equal(t, []string{"Unknown command: /reboot. Try /help."}, r.replies)
}

func TestNoResponderDoesNotPanic(t *testing.T) {
	h := NewCommandHandler(&fakeDispatcher{})
	assert.NotPanics(t, func() { h.OnMessage(&api.UnifiedMessage{Content: "hi"}) })
}
