package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2026, 10, 15, 12, 30, 0, 0, time.Local)

func fixedNow() time.Time { return noon }

type submitRecorder struct{ texts []string }

func (r *submitRecorder) submit(text string) tea.Cmd {
	r.texts = append(r.texts, text)
	return func() tea.Msg { return handledMsg{} }
}

func typeText(m tea.Model, text string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func press(m tea.Model, k tea.KeyType) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: k})
}

func TestGreetingShown(t *testing.T) {
	m := newModel("Hello! Try \"Take a screenshot\".", (&submitRecorder{}).submit, fixedNow)
	view := m.View()
	assert.Contains(t, view, "Desktop Assistant")
	assert.Contains(t, m.transcript(), "[12:30 PM]")
	assert.Contains(t, m.transcript(), "Take a screenshot")
}

func TestSubmitAndReply(t *testing.T) {
	rec := &submitRecorder{}
	var m tea.Model = newModel("", rec.submit, fixedNow)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m = typeText(m, "battery")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	require.Equal(t, []string{"battery"}, rec.texts)

	mm := m.(model)
	assert.True(t, mm.pending)
	assert.Empty(t, mm.input.Value())
	assert.Contains(t, mm.transcript(), "You: battery")
	assert.Contains(t, mm.View(), "working")

	// a second enter while busy is ignored
	m = typeText(m, "louder")
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, []string{"battery"}, rec.texts)

	m, _ = m.Update(replyMsg{text: "Battery is at 87% (Charging)"})
	m, _ = m.Update(handledMsg{})
	mm = m.(model)
	assert.False(t, mm.pending)
	assert.Contains(t, mm.transcript(), "Assistant: Battery is at 87% (Charging)")
}

func TestBlankInputIgnored(t *testing.T) {
	rec := &submitRecorder{}
	var m tea.Model = newModel("", rec.submit, fixedNow)
	m = typeText(m, "   ")
	_, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, rec.texts)
}

func TestExitQuits(t *testing.T) {
	rec := &submitRecorder{}
	var m tea.Model = newModel("", rec.submit, fixedNow)
	m = typeText(m, "Exit")
	_, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, rec.texts)

	_, cmd = press(m, tea.KeyEsc)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestErrorRepliesStillListed(t *testing.T) {
	var m tea.Model = newModel("", (&submitRecorder{}).submit, fixedNow)
	m, _ = m.Update(replyMsg{text: "Error: Unknown app: chrome. Try calculator."})
	assert.True(t, strings.Contains(m.(model).transcript(), "Unknown app: chrome"))
}
