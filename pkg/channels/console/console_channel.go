// Package console is the line-oriented front-end: one command per line on
// stdin, one reply per line on stdout.
package console

import (
	"bufio"
	"context"
	"deskpilot/pkg/api"
	"fmt"
	"io"
	"log/slog"
	"os/user"
	"strings"
	"sync"
)

// Prompt is printed before every input line.
const Prompt = "You: "

// ConsoleChannel reads commands from r and writes replies to w.
type ConsoleChannel struct {
	r io.Reader
	w io.Writer

	mu       sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	session  api.SessionContext
}

// NewConsoleChannel creates a console bound to r and w (usually stdin and stdout).
func NewConsoleChannel(r io.Reader, w io.Writer) *ConsoleChannel {
	ctx, cancel := context.WithCancel(context.Background())
	username := "local"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	return &ConsoleChannel{
		r:      r,
		w:      w,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		session: api.SessionContext{
			ChannelID: "console",
			UserID:    username,
			ChatID:    "console",
			Username:  username,
		},
	}
}

func (c *ConsoleChannel) ID() string {
	return "console"
}

// Done is closed when the user quits or input ends.
func (c *ConsoleChannel) Done() <-chan struct{} {
	return c.done
}

// Start prints the greeting and reads lines in the background. Each line is
// fully handled before the next prompt is shown.
func (c *ConsoleChannel) Start(ctx api.ChannelContext) error {
	c.printf("Desktop assistant ready. Type a command, /help for examples, or 'exit' to quit.\n")

	go func() {
		defer c.finish()

		scanner := bufio.NewScanner(c.r)
		for {
			c.printf("%s", Prompt)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					slog.Error("Console read failed", "error", err)
				}
				c.printf("\n")
				return
			}
			if c.ctx.Err() != nil {
				return
			}

			line := strings.TrimSpace(scanner.Text())
			switch strings.ToLower(line) {
			case "":
				continue
			case "exit", "quit":
				c.printf("Assistant: Goodbye!\n")
				return
			}

			ctx.OnMessage(c.ID(), &api.UnifiedMessage{
				Session: c.session,
				Content: line,
				Ctx:     c.ctx,
			})
		}
	}()
	return nil
}

// Stop ends the session. A read already blocked on the terminal returns
// with the next line, which is then ignored.
func (c *ConsoleChannel) Stop() error {
	c.cancel()
	c.finish()
	return nil
}

func (c *ConsoleChannel) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Send prints a reply.
func (c *ConsoleChannel) Send(session api.SessionContext, message string) error {
	c.printf("Assistant: %s\n", message)
	return nil
}

func (c *ConsoleChannel) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}
