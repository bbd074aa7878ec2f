package gemini

import (
	"context"
	"deskpilot/pkg/llm"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient is a Google Gemini API client bound to one model and key.
type GeminiClient struct {
	client       *genai.Client
	model        string
	temperature  *float32
	debugEnabled bool
}

// SetDebug implements llm.Debuggable.
func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugEnabled = enabled
}

// NewGeminiClient creates a client for one model and API key.
func NewGeminiClient(ctx context.Context, apiKey string, model string, options map[string]any) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiClient{
		client: client,
		model:  model,
	}
	if t, ok := llm.OptionFloat(options, "temperature"); ok {
		g.temperature = genai.Ptr(float32(t))
	}
	return g, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// StreamChat implements llm.LLMClient.
func (g *GeminiClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	contents, systemInstruction := convertMessages(messages)

	chunkCh := make(chan llm.StreamChunk, 100)
	startResultCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)

		debugger := llm.NewStreamDebugger(ctx, g.Provider(), g.debugEnabled)
		defer debugger.Close()

		cfg := &genai.GenerateContentConfig{
			SystemInstruction: systemInstruction,
			Temperature:       g.temperature,
		}

		started := false
		var usage *llm.LLMUsage
		var finishReason string

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				slog.ErrorContext(ctx, "Stream error", "provider", "gemini", "model", g.model, "error", err)
				if !started {
					startResultCh <- err
				} else {
					chunkCh <- llm.NewErrorChunk(err)
				}
				return
			}
			if resp == nil {
				continue
			}
			debugger.WriteJSON(resp)

			if !started {
				started = true
				startResultCh <- nil
			}

			if text := resp.Text(); text != "" {
				chunkCh <- llm.NewTextChunk(text)
			}
			if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
				finishReason = normalizeFinishReason(resp.Candidates[0].FinishReason)
			}
			if um := resp.UsageMetadata; um != nil {
				usage = &llm.LLMUsage{
					PromptTokens:     int(um.PromptTokenCount),
					CompletionTokens: int(um.CandidatesTokenCount),
					TotalTokens:      int(um.TotalTokenCount),
					ThoughtsTokens:   int(um.ThoughtsTokenCount),
				}
			}
		}

		if !started {
			startResultCh <- llm.ErrEmptyReply
			return
		}
		if usage != nil {
			usage.StopReason = finishReason
			llm.LogUsage(ctx, g.model, usage)
		}
		chunkCh <- llm.NewFinalChunk(finishReason, usage)
	}()

	select {
	case err := <-startResultCh:
		if err != nil {
			return nil, err
		}
		return chunkCh, nil
	case <-ctx.Done():
		go func() {
			for range chunkCh {
			}
		}()
		return nil, ctx.Err()
	}
}

func normalizeFinishReason(reason genai.FinishReason) string {
	if reason == genai.FinishReasonMaxTokens {
		return llm.StopReasonLength
	}
	return llm.StopReasonStop
}

// convertMessages splits off system messages into the system instruction;
// Gemini has no system role inside contents.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system []string

	for _, m := range messages {
		text := m.GetTextContent()
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, text)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}

	var systemInstruction *genai.Content
	if len(system) > 0 {
		systemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, systemInstruction
}

// IsTransientError implements llm.LLMClient.
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "503") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "overloaded")
}
