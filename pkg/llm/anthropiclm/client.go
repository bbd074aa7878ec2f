package anthropiclm

import (
	"context"
	"deskpilot/pkg/llm"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultMaxTokens caps a reply when the group sets no max_tokens option.
// A verb line needs only a handful of tokens.
const defaultMaxTokens = 64

// Client wraps the Anthropic Messages API.
type Client struct {
	client       *anthropic.Client
	model        string
	options      map[string]any
	debugEnabled bool
}

// NewClient creates a Messages client for one model.
func NewClient(apiKey string, model string, baseURL string, options map[string]any) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	return &Client{
		client:  &client,
		model:   model,
		options: options,
	}
}

func (c *Client) Provider() string {
	return "anthropic"
}

// SetDebug implements llm.Debuggable.
func (c *Client) SetDebug(enabled bool) {
	c.debugEnabled = enabled
}

// IsTransientError treats rate limits, overload (529) and 5xx as retryable.
func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "overloaded")
}

func (c *Client) params(messages []llm.Message) anthropic.MessageNewParams {
	maxTokens := int64(defaultMaxTokens)
	if v, ok := llm.OptionFloat(c.options, "max_tokens"); ok && v > 0 {
		maxTokens = int64(v)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
	}
	params.System, params.Messages = convertMessages(messages)

	if t, ok := llm.OptionFloat(c.options, "temperature"); ok {
		params.Temperature = anthropic.Float(t)
	}
	if p, ok := llm.OptionFloat(c.options, "top_p"); ok {
		params.TopP = anthropic.Float(p)
	}
	return params
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(messages))

	// first event decides whether the request started at all
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err == nil {
			err = llm.ErrEmptyReply
		}
		return nil, err
	}

	chunkCh := make(chan llm.StreamChunk, 100)

	go func() {
		defer close(chunkCh)
		defer stream.Close()

		debugger := llm.NewStreamDebugger(ctx, c.Provider(), c.debugEnabled)
		defer debugger.Close()

		usage := &llm.LLMUsage{}
		thoughts := 0

		for {
			event := stream.Current()
			debugger.WriteString(event.RawJSON())

			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.PromptTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					chunkCh <- llm.NewTextChunk(delta.Text)
				case anthropic.ThinkingDelta:
					thoughts++
					chunkCh <- llm.NewThinkingChunk(delta.Thinking)
				}
			case anthropic.MessageDeltaEvent:
				usage.CompletionTokens = int(ev.Usage.OutputTokens)
				usage.StopReason = normalizeStopReason(string(ev.Delta.StopReason))
			}

			if !stream.Next() {
				break
			}
		}

		if err := stream.Err(); err != nil {
			slog.ErrorContext(ctx, "Stream error", "provider", "anthropic", "model", c.model, "error", err)
			chunkCh <- llm.NewErrorChunk(err)
			return
		}

		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		usage.ThoughtsTokens = thoughts
		if usage.StopReason == llm.StopReasonLength {
			slog.WarnContext(ctx, "Response truncated due to length", "provider", "anthropic")
		}
		llm.LogUsage(ctx, c.model, usage)
		chunkCh <- llm.NewFinalChunk(usage.StopReason, usage)
	}()

	return chunkCh, nil
}

func normalizeStopReason(reason string) string {
	if reason == string(anthropic.StopReasonMaxTokens) {
		return llm.StopReasonLength
	}
	return llm.StopReasonStop
}

// convertMessages splits system text out of the conversation; the Messages
// API takes it as a separate field.
func convertMessages(messages []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam
	for _, m := range messages {
		text := m.GetTextContent()
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: text})
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	return system, out
}
