package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is used for all JSON handling inside package llm.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LLMUsage is the provider-neutral token accounting for one call.
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ThoughtsTokens   int    `json:"thoughts_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage records usage at debug level.
func LogUsage(ctx context.Context, model string, usage *LLMUsage) {
	if usage == nil {
		return
	}
	slog.DebugContext(ctx, "LLM usage",
		"model", model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
		"thoughts_tokens", usage.ThoughtsTokens,
		"stop_reason", usage.StopReason,
	)
}

// LLMClient is the contract every provider implements.
type LLMClient interface {
	// StreamChat sends messages and streams the reply. An error is returned
	// only when the request could not be started; failures after the first
	// chunk arrive as a final chunk with Err set.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// IsTransientError reports whether err is worth retrying (503, rate limit, ...).
	IsTransientError(err error) bool
}

// Debuggable is implemented by clients that can dump raw chunks to disk.
type Debuggable interface {
	SetDebug(enabled bool)
}

// ErrEmptyReply is returned by Collect when the model produced no text.
var ErrEmptyReply = errors.New("empty reply from model")

// Collect drains a streamed reply into its text content. Thinking blocks are dropped.
func Collect(ctx context.Context, client LLMClient, messages []Message) (string, *LLMUsage, error) {
	ch, err := client.StreamChat(ctx, messages)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	var usage *LLMUsage
	for {
		select {
		case <-ctx.Done():
			// the producer goroutine exits once it notices the same context
			go drain(ch)
			return "", usage, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				if sb.Len() == 0 {
					return "", usage, ErrEmptyReply
				}
				return sb.String(), usage, nil
			}
			if chunk.Err != nil {
				go drain(ch)
				return "", usage, chunk.Err
			}
			for _, block := range chunk.ContentBlocks {
				if block.Type == BlockTypeText {
					sb.WriteString(block.Text)
				}
			}
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
		}
	}
}

func drain(ch <-chan StreamChunk) {
	for range ch {
	}
}

// FallbackClient tries each client in order, retrying transient failures.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback", "provider", i+1)
		}

		// at least one attempt even when retries are disabled
		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.InfoContext(ctx, "Retrying provider", "provider", i+1, "attempt", retry, "max", maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			ch, err := client.StreamChat(ctx, messages)
			if err == nil {
				return ch, nil
			}
			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.WarnContext(ctx, "Provider failed with transient error", "provider", i+1, "error", err)
				continue
			}

			slog.ErrorContext(ctx, "Provider failed", "provider", i+1, "error", err)
			break
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("all fallback providers failed: %w", lastErr)
}

// IsTransientError is false: a FallbackClient error means every child already gave up.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}

// SetDebug forwards to every child that supports it.
func (f *FallbackClient) SetDebug(enabled bool) {
	for _, c := range f.Clients {
		if d, ok := c.(Debuggable); ok {
			d.SetDebug(enabled)
		}
	}
}
