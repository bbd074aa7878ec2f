package monitor

import (
	"fmt"
	"io"
	"sync"
)

// CLIMonitor implements the Monitor interface, printing the traffic of
// every served channel to a terminal.
type CLIMonitor struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewCLIMonitor creates a monitor writing to w, typically os.Stdout.
func NewCLIMonitor(w io.Writer) *CLIMonitor {
	return &CLIMonitor{
		writer: w,
	}
}

// Start prints the header.
func (m *CLIMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "CLI Monitor Active - commands from all channels will appear here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

// Stop stops the CLI monitor
func (m *CLIMonitor) Stop() error {
	return nil
}

// OnMessage prints one message with a gray timestamp.
func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	var displayMsg string
	if msg.MessageType == MessageTypeAssistant {
		displayMsg = fmt.Sprintf("[Assistant -> %s/%s] %s", msg.ChannelID, msg.Username, msg.Content)
	} else {
		displayMsg = fmt.Sprintf("[%s/%s] %s", msg.ChannelID, msg.Username, msg.Content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.writer, "\033[90m[%s]\033[0m %s\n", timestamp, displayMsg)
}
