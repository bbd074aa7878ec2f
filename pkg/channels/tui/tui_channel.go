// Package tui is the chat-window front-end built on Bubble Tea.
package tui

import (
	"context"
	"deskpilot/pkg/api"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TUIChannel runs the chat window. Commands are dispatched from a tea.Cmd,
// off the event loop, and replies come back through Program.Send.
type TUIChannel struct {
	greeting string
	opts     []tea.ProgramOption

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	err     error
	ctx     context.Context
	cancel  context.CancelFunc
	session api.SessionContext
}

// NewTUIChannel creates the window; greeting is the first assistant message.
func NewTUIChannel(greeting string, opts ...tea.ProgramOption) *TUIChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &TUIChannel{
		greeting: greeting,
		opts:     opts,
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		session: api.SessionContext{
			ChannelID: "tui",
			UserID:    "local",
			ChatID:    "tui",
			Username:  "local",
		},
	}
}

func (c *TUIChannel) ID() string {
	return "tui"
}

// Done is closed when the window exits.
func (c *TUIChannel) Done() <-chan struct{} {
	return c.done
}

// Err reports why the program stopped, if it failed.
func (c *TUIChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *TUIChannel) Start(ctx api.ChannelContext) error {
	submit := func(text string) tea.Cmd {
		return func() tea.Msg {
			ctx.OnMessage(c.ID(), &api.UnifiedMessage{
				Session: c.session,
				Content: text,
				Ctx:     c.ctx,
			})
			return handledMsg{}
		}
	}

	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, c.opts...)
	p := tea.NewProgram(newModel(c.greeting, submit, time.Now), opts...)

	c.mu.Lock()
	c.program = p
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		defer c.cancel()
		if _, err := p.Run(); err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("chat window: %w", err)
			c.mu.Unlock()
		}
	}()
	return nil
}

func (c *TUIChannel) Stop() error {
	c.cancel()
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()
	if p != nil {
		p.Quit()
	}
	return nil
}

// Send posts a reply into the window.
func (c *TUIChannel) Send(session api.SessionContext, message string) error {
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()
	if p == nil {
		return fmt.Errorf("chat window not started")
	}
	select {
	case <-c.done:
		return fmt.Errorf("chat window closed")
	default:
	}
	p.Send(replyMsg{text: message})
	return nil
}
