package gateway

import (
	"deskpilot/pkg/api"
	"deskpilot/pkg/monitor"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// GatewayManager owns every registered channel and routes messages between
// them and the single message handler.
type GatewayManager struct {
	channels   map[string]api.Channel
	order      []string
	msgHandler api.MessageHandler
	monitor    monitor.Monitor
	mu         sync.RWMutex
}

// NewGatewayManager creates an empty GatewayManager.
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels: make(map[string]api.Channel),
	}
}

// SetMessageHandler sets the function every incoming message is handed to.
func (g *GatewayManager) SetMessageHandler(handler api.MessageHandler) {
	g.msgHandler = handler
}

// SetMonitor sets the monitor that sees all traffic.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

// Register adds a channel. Registering the same ID twice replaces the first.
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.channels[c.ID()]; !exists {
		g.order = append(g.order, c.ID())
	}
	g.channels[c.ID()] = c
}

// GetChannel returns a registered channel.
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// StartAll starts the channels in registration order. If one fails, those
// already started are stopped again.
func (g *GatewayManager) StartAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for i, id := range g.order {
		slog.Info("Starting channel", "channel", id)
		if err := g.channels[id].Start(g); err != nil {
			for _, started := range g.order[:i] {
				g.stopChannel(started)
			}
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll stops every channel and the monitor.
func (g *GatewayManager) StopAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, id := range g.order {
		g.stopChannel(id)
	}
	if g.monitor != nil {
		if err := g.monitor.Stop(); err != nil {
			slog.Error("Error stopping monitor", "error", err)
		}
	}
}

func (g *GatewayManager) stopChannel(id string) {
	slog.Info("Stopping channel", "channel", id)
	if err := g.channels[id].Stop(); err != nil {
		slog.Error("Error stopping channel", "channel", id, "error", err)
	}
}

// SendReply delivers content to the channel the session belongs to.
func (g *GatewayManager) SendReply(session api.SessionContext, content string) error {
	slog.Debug("Reply", "channel", session.ChannelID, "user", session.Username, "content", content)

	if g.monitor != nil {
		g.monitor.OnMessage(monitor.MonitorMessage{
			Timestamp:   time.Now(),
			MessageType: monitor.MessageTypeAssistant,
			ChannelID:   session.ChannelID,
			Username:    session.Username,
			Content:     content,
		})
	}

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.Send(session, content)
}

// SendSignal forwards a control signal; channels that cannot show signals ignore it.
func (g *GatewayManager) SendSignal(session api.SessionContext, signal string) error {
	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}

	if sc, ok := c.(api.SignalingChannel); ok {
		slog.Debug("Signal", "channel", session.ChannelID, "user", session.Username, "signal", signal)
		return sc.SendSignal(session, signal)
	}
	return nil
}

// ErrNoHandler is logged when a message arrives before a handler is set.
var ErrNoHandler = errors.New("no message handler set")

// OnMessage implements api.ChannelContext.
func (g *GatewayManager) OnMessage(channelID string, msg *api.UnifiedMessage) {
	slog.Debug("Received", "channel", channelID, "user", msg.Session.Username, "user_id", msg.Session.UserID, "content", msg.Content)

	if g.monitor != nil {
		g.monitor.OnMessage(monitor.MonitorMessage{
			Timestamp:   time.Now(),
			MessageType: monitor.MessageTypeUser,
			ChannelID:   channelID,
			Username:    msg.Session.Username,
			Content:     msg.Content,
		})
	}

	if g.msgHandler == nil {
		slog.Warn("Dropping message", "channel", channelID, "error", ErrNoHandler)
		return
	}
	g.msgHandler(msg)
}
