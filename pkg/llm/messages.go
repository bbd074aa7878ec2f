package llm

import (
	"strings"
	"time"
)

//----------------------------------------------------------------
// Message
//----------------------------------------------------------------

// Message is one turn sent to a provider.
type Message struct {
	Role      string         `json:"role"` // "system", "user", "assistant"
	Content   []ContentBlock `json:"content"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// ContentBlock is one piece of message content.
type ContentBlock struct {
	Type string `json:"type"` // "text" | "thinking"
	Text string `json:"text,omitempty"`
}

// StreamChunk is one incremental piece of a streamed reply.
type StreamChunk struct {
	// ContentBlocks carries only the newly produced content.
	ContentBlocks []ContentBlock `json:"content_blocks,omitempty"`

	IsFinal      bool      `json:"is_final"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        *LLMUsage `json:"usage,omitempty"`

	// Err is set when the stream broke after it had started.
	Err error `json:"-"`
}

//----------------------------------------------------------------
// Helper Functions - Message
//----------------------------------------------------------------

// NewTextMessage builds a plain text message.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:      role,
		Content:   []ContentBlock{NewTextBlock(text)},
		Timestamp: time.Now().Unix(),
	}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewUserMessage builds a user message.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, text)
}

// GetTextContent concatenates the text blocks, skipping thinking.
func (m *Message) GetTextContent() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockTypeText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

//----------------------------------------------------------------
// Helper Functions - ContentBlock / StreamChunk
//----------------------------------------------------------------

// NewTextBlock builds a text block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// NewTextChunk builds a text chunk.
func NewTextChunk(text string) StreamChunk {
	return StreamChunk{ContentBlocks: []ContentBlock{NewTextBlock(text)}}
}

// NewThinkingChunk builds a thinking chunk.
func NewThinkingChunk(text string) StreamChunk {
	return StreamChunk{ContentBlocks: []ContentBlock{{Type: BlockTypeThinking, Text: text}}}
}

// NewFinalChunk builds the closing chunk carrying usage.
func NewFinalChunk(reason string, usage *LLMUsage) StreamChunk {
	return StreamChunk{
		IsFinal:      true,
		FinishReason: reason,
		Usage:        usage,
	}
}

// NewErrorChunk reports a stream that failed midway.
func NewErrorChunk(err error) StreamChunk {
	return StreamChunk{IsFinal: true, Err: err}
}
