// Package oracle asks a language model which grammar verb an utterance means.
// Its replies are untrusted: Normalize only cleans up their shape and the
// command parser decides whether they mean anything.
package oracle

import (
	"context"
	"deskpilot/pkg/command"
	"deskpilot/pkg/llm"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ErrEmptyReply means the model answered but nothing usable was left after normalization.
var ErrEmptyReply = errors.New("oracle returned no command")

// Oracle maps free text to a single "<verb-token> [<argument>]" line.
type Oracle interface {
	Classify(ctx context.Context, text string) (string, error)
}

// LLMOracle classifies with an llm.LLMClient prompted with the grammar.
type LLMOracle struct {
	client  llm.LLMClient
	prompt  string
	timeout time.Duration
}

// NewLLMOracle renders g into the system prompt once. A zero timeout leaves
// the caller's context deadline as the only bound.
func NewLLMOracle(client llm.LLMClient, g *command.Grammar, timeout time.Duration) *LLMOracle {
	return &LLMOracle{
		client:  client,
		prompt:  g.Prompt(),
		timeout: timeout,
	}
}

// Classify implements Oracle.
func (o *LLMOracle) Classify(ctx context.Context, text string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, usage, err := llm.Collect(ctx, o.client, []llm.Message{
		llm.NewSystemMessage(o.prompt),
		llm.NewUserMessage(command.UserPrompt(text)),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("oracle timed out after %s: %w", o.timeout, err)
		}
		return "", fmt.Errorf("oracle request failed: %w", err)
	}

	token := Normalize(reply)
	attrs := []any{"reply", reply, "token", token, "duration", time.Since(start).String()}
	if usage != nil {
		attrs = append(attrs, "total_tokens", usage.TotalTokens)
	}
	slog.DebugContext(ctx, "Oracle replied", attrs...)

	if token == "" {
		return "", ErrEmptyReply
	}
	return token, nil
}

var arrows = []string{"→", "->", "=>"}

// Normalize reduces a model reply to a candidate token line: the first
// non-empty line, lower-cased, with list markers, quotes, backticks and
// trailing punctuation removed. When the model echoes an example
// ("Open calculator" → open_app calculator) the part after the arrow is kept.
func Normalize(reply string) string {
	var line string
	for l := range strings.Lines(reply) {
		l = strings.TrimSpace(strings.Trim(strings.TrimSpace(l), "`"))
		if l != "" {
			line = l
			break
		}
	}

	for _, arrow := range arrows {
		if i := strings.LastIndex(line, arrow); i >= 0 {
			line = line[i+len(arrow):]
		}
	}

	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "- ")
	line = strings.Trim(line, "\"'` ")
	line = strings.TrimRight(line, ".!?,;:")
	line = strings.Trim(line, "\"'` ")
	return strings.ToLower(strings.Join(strings.Fields(line), " "))
}

var dateTimePattern = regexp.MustCompile(`(?i)\b(what time|what day|current time|time is it|date)\b`)

// IsDateTimeQuery reports whether text asks for the date or time. Such
// questions are answered from the clock without consulting the model.
func IsDateTimeQuery(text string) bool {
	return dateTimePattern.MatchString(text)
}
