package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ===========================================================================
// CHAT TUI
// ===========================================================================
//
// Full-screen alternative to the line REPL in cmd_ask.go: the story in a
// panel at the top, a scrolling transcript of questions and answers, and a
// text input at the bottom.
// ===========================================================================

var (
	storyBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// askTurn is one question/answer pair in the transcript.
type askTurn struct {
	question   string
	answer     string
	confidence float64
	err        error
}

// askModel is the Bubble Tea model for the chat interface.
type askModel struct {
	session    *AskSession
	input      textinput.Model
	transcript viewport.Model
	turns      []askTurn
	ready      bool
	width      int
}

// newAskModel creates the TUI model around a prepared session.
func newAskModel(session *AskSession) askModel {
	ti := textinput.New()
	ti.Prompt = "Ask question: "
	ti.Placeholder = "Where is Mary?"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return askModel{session: session, input: ti, transcript: vp}
}

// Init starts the text input cursor blink.
func (m askModel) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width

		storyLines := lipgloss.Height(m.renderStory())
		reserved := storyLines + 3 // input, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.transcript.Width = msg.Width
		m.transcript.Height = vh
		m.transcript.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			if q == "q" || q == "quit" || q == "exit" {
				return m, tea.Quit
			}

			turn := askTurn{question: q}
			turn.answer, turn.confidence, turn.err = m.session.Ask(q)
			m.turns = append(m.turns, turn)

			m.input.SetValue("")
			m.transcript.SetContent(m.renderTranscript())
			m.transcript.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout: story panel, transcript, input, status.
func (m askModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := faintStyle.Render("enter to ask · q or ctrl+c to quit")
	return m.renderStory() + "\n" +
		m.transcript.View() + "\n" +
		m.input.View() + "\n" +
		status
}

func (m askModel) renderStory() string {
	header := lipgloss.NewStyle().Bold(true).Render("Refbot")
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	story := storyBoxStyle.Width(width).Render(m.session.StoryText())
	return header + "\n" + story
}

func (m askModel) renderTranscript() string {
	if len(m.turns) == 0 {
		return faintStyle.Render("Ask a question about the story above.")
	}

	var b strings.Builder
	for _, turn := range m.turns {
		b.WriteString(questionStyle.Render("> "+turn.question) + "\n")
		if turn.err != nil {
			b.WriteString(errorStyle.Render("  "+turn.err.Error()) + "\n\n")
			continue
		}
		b.WriteString(answerStyle.Render(fmt.Sprintf("  %s", turn.answer)))
		b.WriteString(faintStyle.Render(fmt.Sprintf("  (confidence %.4f)", turn.confidence)))
		b.WriteString("\n\n")
	}
	return b.String()
}

// runAskTUI runs the chat interface until the user quits.
func runAskTUI(session *AskSession) error {
	p := tea.NewProgram(newAskModel(session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
