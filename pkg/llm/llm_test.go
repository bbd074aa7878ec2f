package llm

import (
	"context"
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

type scriptedClient struct {
	errs      []error
	chunks    []StreamChunk
	calls     int
	transient bool
}

func (s *scriptedClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	ch := make(chan StreamChunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (s *scriptedClient) IsTransientError(err error) bool { return s.transient }

func TestCollectJoinsTextAndSkipsThinking(t *testing.T) {
	c := &scriptedClient{chunks: []StreamChunk{
		NewThinkingChunk("the user wants volume"),
		NewTextChunk("increase_"),
		NewTextChunk("volume"),
		NewFinalChunk(StopReasonStop, &LLMUsage{TotalTokens: 7}),
	}}

	text, usage, err := Collect(context.Background(), c, []Message{NewUserMessage("louder")})
	require.NoError(t, err)
	require.Equal(t, "increase_volume", text)
	require.Equal(t, 7, usage.TotalTokens)
}

func TestCollectEmptyReply(t *testing.T) {
	c := &scriptedClient{chunks: []StreamChunk{NewFinalChunk(StopReasonStop, nil)}}
	_, _, err := Collect(context.Background(), c, nil)
	require.ErrorIs(t, err, ErrEmptyReply)
}

func TestCollectStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	c := &scriptedClient{chunks: []StreamChunk{NewTextChunk("take_"), NewErrorChunk(boom)}}
	_, _, err := Collect(context.Background(), c, nil)
	require.ErrorIs(t, err, boom)
}

func TestCollectCancelled(t *testing.T) {
	ch := make(chan StreamChunk)
	client := &chanClient{ch: ch}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Collect(ctx, client, nil)
	require.ErrorIs(t, err, context.Canceled)
	close(ch)
}

type chanClient struct{ ch chan StreamChunk }

func (c *chanClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	return c.ch, nil
}
func (c *chanClient) IsTransientError(err error) bool { return false }

func TestFallbackRetriesTransient(t *testing.T) {
	first := &scriptedClient{
		errs:      []error{errors.New("503"), nil},
		chunks:    []StreamChunk{NewTextChunk("show_battery")},
		transient: true,
	}
	f := &FallbackClient{Clients: []LLMClient{first}, MaxRetries: 3, RetryDelay: time.Millisecond}

	text, _, err := Collect(context.Background(), f, nil)
	require.NoError(t, err)
	require.Equal(t, "show_battery", text)
	require.Equal(t, 2, first.calls)
}

func TestFallbackMovesToNextProvider(t *testing.T) {
	first := &scriptedClient{errs: []error{errors.New("401 unauthorized")}}
	second := &scriptedClient{chunks: []StreamChunk{NewTextChunk("show_volume")}}
	f := &FallbackClient{Clients: []LLMClient{first, second}, MaxRetries: 3, RetryDelay: time.Millisecond}

	text, _, err := Collect(context.Background(), f, nil)
	require.NoError(t, err)
	require.Equal(t, "show_volume", text)
	require.Equal(t, 1, first.calls)
}

func TestFallbackAllFail(t *testing.T) {
	boom := errors.New("down")
	f := &FallbackClient{Clients: []LLMClient{
		&scriptedClient{errs: []error{boom}},
		&scriptedClient{errs: []error{boom}},
	}}
	_, err := f.StreamChat(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	require.False(t, f.IsTransientError(err))
}

type debugClient struct {
	scriptedClient
	debug bool
}

func (d *debugClient) SetDebug(enabled bool) { d.debug = enabled }

func TestFallbackSetDebugForwards(t *testing.T) {
	d := &debugClient{}
	f := &FallbackClient{Clients: []LLMClient{d, &scriptedClient{}}}
	f.SetDebug(true)
	require.True(t, d.debug)
}

func TestNewFromConfigUnknownProvider(t *testing.T) {
	_, err := NewFromConfig([]byte(`[{"type":"nope","models":["x"]}]`), nil)
	require.Error(t, err)

	_, err = NewFromConfig(nil, nil)
	require.Error(t, err)
}

func TestOptionFloat(t *testing.T) {
	v, ok := OptionFloat(map[string]any{"temperature": 0.3}, "temperature")
	require.True(t, ok)
	require.InDelta(t, 0.3, v, 1e-9)

	v, ok = OptionFloat(map[string]any{"num_thread": 4}, "num_thread")
	require.True(t, ok)
	require.Equal(t, 4.0, v)

	_, ok = OptionFloat(nil, "temperature")
	require.False(t, ok)
}

func TestResolveAPIKeys(t *testing.T) {
	t.Setenv("DESKPILOT_TEST_KEY", "from-env")
	t.Setenv("DESKPILOT_EMPTY_KEY", "")

	cfg := ProviderGroupConfig{APIKeys: []string{"literal", "$DESKPILOT_TEST_KEY", "${DESKPILOT_EMPTY_KEY}"}}
	assert.Equal(t, []string{"literal", "from-env"}, cfg.ResolveAPIKeys("UNUSED"))

	cfg = ProviderGroupConfig{}
	assert.Equal(t, []string{"from-env"}, cfg.ResolveAPIKeys("DESKPILOT_TEST_KEY"))
	assert.Empty(t, cfg.ResolveAPIKeys("DESKPILOT_EMPTY_KEY"))
}
