package api

import "context"

// Channel defines the standardized lifecycle interface for front-ends.
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
	Send(session SessionContext, message string) error
}

// SignalingChannel is an optional extension of the Channel interface for
// front-ends that can show transient state, such as a "thinking" indicator.
type SignalingChannel interface {
	Channel
	SendSignal(session SessionContext, signal string) error
}

// Signals understood by SignalingChannel implementations.
const (
	SignalThinking = "thinking"
	SignalIdle     = "idle"
)

// ChannelContext is how a Channel talks back to the gateway.
type ChannelContext interface {
	MessageResponder
	OnMessage(channelID string, msg *UnifiedMessage)
}

// MessageResponder sends replies and signals back to a channel.
type MessageResponder interface {
	SendReply(session SessionContext, content string) error
	SendSignal(session SessionContext, signal string) error
}

// UnifiedMessage is one utterance received by any front-end.
type UnifiedMessage struct {
	Session   SessionContext // where the text came from and where the reply goes
	Content   string         // raw user text
	Raw       any            // original platform payload, if any
	RequestID string         // assigned by the handler, groups the logs of one utterance

	// Ctx, when set, carries cancellation from the front-end (e.g. the
	// websocket connection closing). Nil means context.Background.
	Ctx context.Context
}

// Context returns msg.Ctx or context.Background.
func (m *UnifiedMessage) Context() context.Context {
	if m.Ctx != nil {
		return m.Ctx
	}
	return context.Background()
}

// SessionContext identifies a conversation on a channel.
type SessionContext struct {
	ChannelID string // e.g. "console", "web", "telegram"
	UserID    string
	ChatID    string // may equal UserID for direct messages
	Username  string
}

// MessageHandler adapts a function to MessageProcessor.
type MessageHandler func(*UnifiedMessage)

// OnMessage allows MessageHandler to satisfy the MessageProcessor interface.
func (h MessageHandler) OnMessage(msg *UnifiedMessage) {
	h(msg)
}

// MessageProcessor processes incoming messages.
type MessageProcessor interface {
	OnMessage(msg *UnifiedMessage)
}

// ResponderAware components get the gateway injected as their responder.
type ResponderAware interface {
	SetResponder(responder MessageResponder)
}

// GatewayHandler is a composite interface for components that handle incoming
// messages AND are aware of the responder (e.g., CommandHandler).
type GatewayHandler interface {
	MessageProcessor
	ResponderAware
}
