package openailm

import (
	"context"
	"deskpilot/pkg/llm"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the official OpenAI Go SDK. Any OpenAI-compatible endpoint
// (LM Studio, vLLM, OpenRouter, ...) works through BaseURL.
type Client struct {
	client       *openai.Client
	provider     string
	model        string
	debugEnabled bool
	options      map[string]any
}

// NewClient creates a chat completions client for one model.
func NewClient(provider string, apiKey string, model string, baseURL string, options map[string]any) (*Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are the FallbackClient's job
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		options:  options,
	}, nil
}

func (c *Client) Provider() string {
	return c.provider
}

// SetDebug implements llm.Debuggable.
func (c *Client) SetDebug(enabled bool) {
	c.debugEnabled = enabled
}

func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// network-level issues
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") {
		return true
	}

	// server-side temporary failures
	return strings.Contains(msg, "429 too many requests") ||
		strings.Contains(msg, "500 internal") ||
		strings.Contains(msg, "502 bad gateway") ||
		strings.Contains(msg, "503 service unavailable") ||
		strings.Contains(msg, "overloaded")
}

func (c *Client) params(messages []llm.Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: convertMessages(messages),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if t, ok := llm.OptionFloat(c.options, "temperature"); ok {
		params.Temperature = openai.Float(t)
	}
	if p, ok := llm.OptionFloat(c.options, "top_p"); ok {
		params.TopP = openai.Float(p)
	}
	if maxTok, ok := llm.OptionFloat(c.options, "max_tokens"); ok {
		params.MaxCompletionTokens = openai.Int(int64(maxTok))
	}
	return params
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages))

	// Pull the first event synchronously so request errors (401, 404, refused)
	// surface as a start failure and the FallbackClient can move on.
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

		debugger := llm.NewStreamDebugger(ctx, c.provider, c.debugEnabled)
		defer debugger.Close()

		var finishReason string
		var usage *llm.LLMUsage

		for {
			chunk := stream.Current()
			debugger.WriteString(chunk.RawJSON())

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					chunkCh <- llm.NewTextChunk(choice.Delta.Content)
				}
				if choice.FinishReason != "" {
					finishReason = normalizeFinishReason(choice.FinishReason)
				}
			}
			if chunk.Usage.TotalTokens > 0 {
				usage = &llm.LLMUsage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
					ThoughtsTokens:   int(chunk.Usage.CompletionTokensDetails.ReasoningTokens),
				}
			}

			if !stream.Next() {
				break
			}
		}

		if err := stream.Err(); err != nil {
			slog.ErrorContext(ctx, "Stream error", "provider", c.provider, "model", c.model, "error", err)
			chunkCh <- llm.NewErrorChunk(err)
			return
		}

		if usage != nil {
			usage.StopReason = finishReason
			llm.LogUsage(ctx, c.model, usage)
		}
		chunkCh <- llm.NewFinalChunk(finishReason, usage)
	}()

	return chunkCh, nil
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "length":
		return llm.StopReasonLength
	default:
		return llm.StopReasonStop
	}
}

func convertMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		text := m.GetTextContent()
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(text))
		default:
			out = append(out, openai.UserMessage(text))
		}
	}
	return out
}
