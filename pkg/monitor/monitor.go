package monitor

import "time"

// Message types carried by MonitorMessage.
const (
	MessageTypeUser      = "USER"
	MessageTypeAssistant = "ASSISTANT"
)

// MonitorMessage is one line of traffic seen by the gateway.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // MessageTypeUser or MessageTypeAssistant
	ChannelID   string
	Username    string
	Content     string
}

// Monitor observes every message routed through the gateway.
type Monitor interface {
	Start() error
	Stop() error
	OnMessage(msg MonitorMessage)
}
