package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	frameStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

// replyMsg carries an assistant reply into the event loop.
type replyMsg struct{ text string }

// handledMsg is returned by the submit command once dispatch has finished.
type handledMsg struct{}

type entry struct {
	at      time.Time
	speaker string
	text    string
}

// model is the chat window: a scrolling transcript, an input line and a
// spinner shown while a command is in flight.
type model struct {
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	submit  func(text string) tea.Cmd
	now     func() time.Time
	entries []entry
	pending bool
	ready   bool
	width   int
}

func newModel(greeting string, submit func(string) tea.Cmd, now func() time.Time) model {
	ti := textinput.New()
	ti.Placeholder = "Type a command, e.g. \"increase volume by 10\""
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		viewport: viewport.New(80, 20),
		input:    ti,
		spinner:  sp,
		submit:   submit,
		now:      now,
		width:    80,
	}
	if greeting != "" {
		m.entries = append(m.entries, entry{at: now(), speaker: "Assistant", text: greeting})
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = max(msg.Width-2, 10)
		m.viewport.Height = max(msg.Height-6, 3)
		m.input.Width = max(msg.Width-6, 10)
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.pending {
				return m, nil
			}
			m.input.Reset()
			if lower := strings.ToLower(text); lower == "exit" || lower == "quit" {
				return m, tea.Quit
			}
			m.entries = append(m.entries, entry{at: m.now(), speaker: "You", text: text})
			m.pending = true
			m.refresh()
			return m, tea.Batch(m.submit(text), m.spinner.Tick)
		}

	case replyMsg:
		m.entries = append(m.entries, entry{at: m.now(), speaker: "Assistant", text: msg.text})
		m.refresh()
		return m, nil

	case handledMsg:
		m.pending = false
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m model) transcript() string {
	width := max(m.viewport.Width-2, 20)
	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		stamp := timeStyle.Render("[" + e.at.Format("03:04 PM") + "]")
		speaker := userStyle.Render(e.speaker + ":")
		text := e.text
		if e.speaker == "Assistant" {
			speaker = assistantStyle.Render(e.speaker + ":")
			if strings.HasPrefix(text, "Error: ") {
				text = errorStyle.Render(text)
			}
		}
		line := fmt.Sprintf("%s %s %s", stamp, speaker, text)
		sb.WriteString(lipgloss.NewStyle().Width(width).Render(line))
	}
	return sb.String()
}

func (m model) View() string {
	status := statusStyle.Render("enter to send · esc to quit")
	if m.pending {
		status = m.spinner.View() + statusStyle.Render(" working…")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Desktop Assistant"),
		frameStyle.Render(m.viewport.View()),
		m.input.View(),
		status,
	)
}
