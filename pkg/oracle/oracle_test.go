package oracle

import (
	"context"
	"deskpilot/pkg/command"
	"deskpilot/pkg/llm"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// replyClient answers every request with a fixed text.
type replyClient struct {
	reply    string
	err      error
	received []llm.Message
}

func (c *replyClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	c.received = messages
	if c.err != nil {
		return nil, c.err
	}
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.NewTextChunk(c.reply)
	ch <- llm.NewFinalChunk(llm.StopReasonStop, &llm.LLMUsage{TotalTokens: 5})
	close(ch)
	return ch, nil
}

func (c *replyClient) IsTransientError(err error) bool { return false }

// stallClient starts a stream that only ends when the request context does.
type stallClient struct{}

func (stallClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		<-ctx.Done()
	}()
	return ch, nil
}

func (stallClient) IsTransientError(err error) bool { return false }

func TestClassifySendsGrammarPrompt(t *testing.T) {
	client := &replyClient{reply: "Increase_Volume 20\n"}
	o := NewLLMOracle(client, command.Default(), time.Second)

	token, err := o.Classify(context.Background(), "turn it up by 20")
	require.NoError(t, err)
	assert.Equal(t, "increase_volume 20", token)

	require.Len(t, client.received, 2)
	assert.Equal(t, llm.RoleSystem, client.received[0].Role)
	assert.Equal(t, command.Default().Prompt(), client.received[0].GetTextContent())
	assert.Equal(t, command.UserPrompt("turn it up by 20"), client.received[1].GetTextContent())
}

func TestClassifyTimeout(t *testing.T) {
	o := NewLLMOracle(stallClient{}, command.Default(), 20*time.Millisecond)

	start := time.Now()
	_, err := o.Classify(context.Background(), "make it brighter")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassifyProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	o := NewLLMOracle(&replyClient{err: boom}, command.Default(), time.Second)

	_, err := o.Classify(context.Background(), "battery")
	require.ErrorIs(t, err, boom)
}

func TestClassifyBlankReply(t *testing.T) {
	o := NewLLMOracle(&replyClient{reply: "``` \n```"}, command.Default(), time.Second)

	_, err := o.Classify(context.Background(), "hmm")
	require.ErrorIs(t, err, ErrEmptyReply)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		reply string
		want  string
	}{
		{"show_battery", "show_battery"},
		{"  Take_Screenshot.  ", "take_screenshot"},
		{"`open_app Calculator`", "open_app calculator"},
		{"\"decrease_brightness 30\"", "decrease_brightness 30"},
		{"\n\nshow_volume\nThe user wants the volume.", "show_volume"},
		{`"Open calculator" → open_app calculator`, "open_app calculator"},
		{"increase volume -> increase_volume 10", "increase_volume 10"},
		{"- show_datetime", "show_datetime"},
		{"open_app  visual   studio", "open_app visual studio"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.reply), "reply %q", tc.reply)
	}
}

func TestIsDateTimeQuery(t *testing.T) {
	for _, text := range []string{
		"what time is it",
		"What's the date?",
		"WHAT DAY is today",
		"tell me the current time",
		"do you know what time it is",
	} {
		assert.True(t, IsDateTimeQuery(text), text)
	}
	for _, text := range []string{
		"update my apps",
		"open calculator",
		"increase brightness",
		"candidates",
		"",
	} {
		assert.False(t, IsDateTimeQuery(text), text)
	}
}
