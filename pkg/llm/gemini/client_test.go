package gemini

import (
	"deskpilot/pkg/llm"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConvertMessagesSplitsSystem(t *testing.T) {
	contents, system := convertMessages([]llm.Message{
		llm.NewSystemMessage("grammar"),
		llm.NewUserMessage("take a screenshot"),
	})

	require.NotNil(t, system)
	require.Equal(t, "grammar", system.Parts[0].Text)
	require.Len(t, contents, 1)
	require.Equal(t, genai.RoleUser, contents[0].Role)
	require.Equal(t, "take a screenshot", contents[0].Parts[0].Text)
}

func TestNormalizeFinishReason(t *testing.T) {
	require.Equal(t, llm.StopReasonLength, normalizeFinishReason(genai.FinishReasonMaxTokens))
	require.Equal(t, llm.StopReasonStop, normalizeFinishReason(genai.FinishReasonStop))
}

func TestFactoryRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := (&GeminiFactory{}).Create(llm.ProviderGroupConfig{Type: "gemini", Models: []string{"gemini-2.5-flash"}}, nil)
	require.Error(t, err)
}

func TestIsTransientError(t *testing.T) {
	g := &GeminiClient{}
	require.True(t, g.IsTransientError(errors.New("Error 503, Message: The model is overloaded")))
	require.True(t, g.IsTransientError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	require.False(t, g.IsTransientError(errors.New("Error 400, Message: API key not valid")))
}
