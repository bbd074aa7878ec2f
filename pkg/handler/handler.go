package handler

import (
	"context"
	"deskpilot/pkg/api"
	"deskpilot/pkg/command"
	"deskpilot/pkg/dispatcher"
	"deskpilot/pkg/monitor"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dispatcher is the part of dispatcher.Dispatcher the handler needs.
type Dispatcher interface {
	Handle(ctx context.Context, text string) dispatcher.Outcome
}

// CommandHandler receives every utterance from the gateway, runs it through
// the dispatcher and sends the rendered outcome back to the same session.
// Lines starting with "/" are handled locally and never reach the oracle.
type CommandHandler struct {
	dispatcher Dispatcher
	responder  api.MessageResponder
	grammar    *command.Grammar
}

// NewCommandHandler wraps d. The responder is injected by the gateway builder.
func NewCommandHandler(d Dispatcher) *CommandHandler {
	return &CommandHandler{
		dispatcher: d,
		grammar:    command.Default(),
	}
}

// SetResponder implements api.ResponderAware.
func (h *CommandHandler) SetResponder(r api.MessageResponder) {
	h.responder = r
}

// OnMessage implements api.MessageProcessor.
func (h *CommandHandler) OnMessage(msg *api.UnifiedMessage) {
	if msg.RequestID == "" {
		msg.RequestID = newRequestID()
	}
	ctx := monitor.WithRequestID(msg.Context(), msg.RequestID)
	start := time.Now()

	slog.InfoContext(ctx, "Message received", "channel", msg.Session.ChannelID, "user", msg.Session.Username, "content", msg.Content)

	if strings.HasPrefix(strings.TrimSpace(msg.Content), "/") {
		h.reply(ctx, msg.Session, h.handleSlashCommand(msg.Content))
		return
	}

	if err := h.signal(msg.Session, api.SignalThinking); err != nil {
		slog.DebugContext(ctx, "Failed to send thinking signal", "error", err)
	}
	outcome := h.dispatcher.Handle(ctx, msg.Content)
	h.reply(ctx, msg.Session, dispatcher.Render(outcome))

	slog.InfoContext(ctx, "Message handled", "ok", outcome.OK, "duration", time.Since(start).String())
}

func (h *CommandHandler) reply(ctx context.Context, session api.SessionContext, text string) {
	if h.responder == nil {
		slog.ErrorContext(ctx, "No responder set, reply dropped", "reply", text)
		return
	}
	if err := h.responder.SendReply(session, text); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "channel", session.ChannelID, "error", err)
	}
}

func (h *CommandHandler) signal(session api.SessionContext, signal string) error {
	if h.responder == nil {
		return nil
	}
	return h.responder.SendSignal(session, signal)
}

// handleSlashCommand answers the local commands.
func (h *CommandHandler) handleSlashCommand(content string) string {
	name, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(content), "/"), " ")
	switch strings.ToLower(name) {
	case "help", "start":
		return HelpText(h.grammar)
	default:
		return fmt.Sprintf("Unknown command: /%s. Try /help.", name)
	}
}

// HelpText lists one example phrasing per verb.
func HelpText(g *command.Grammar) string {
	var sb strings.Builder
	sb.WriteString("You can say things like:")
	for _, e := range g.Entries() {
		if len(e.Examples) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n  %s", e.Examples[0].Phrase)
	}
	return sb.String()
}

func newRequestID() string {
	return uuid.NewString()[:8]
}
