// Package command is the ":" palette that runs an action by name.
package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/campushub/internal/theme"
)

// Action is a palette command the root model knows how to run.
type Action int

const (
	ActionNone Action = iota
	ActionNotifications
	ActionRefresh
	ActionClearAll
	ActionLogin
	ActionLogout
	ActionHelp
	ActionQuit
)

// names lists the accepted spellings of each action. The first one is
// offered as a suggestion.
var names = []struct {
	action  Action
	aliases []string
}{
	{ActionNotifications, []string{"notifications", "notifs", "bell"}},
	{ActionRefresh, []string{"refresh", "sync"}},
	{ActionClearAll, []string{"clear", "clear all"}},
	{ActionLogin, []string{"login", "log in"}},
	{ActionLogout, []string{"logout", "log out"}},
	{ActionHelp, []string{"help"}},
	{ActionQuit, []string{"quit", "q", "exit"}},
}

// Resolve maps typed text to an action. Unknown text yields ActionNone.
func Resolve(input string) Action {
	input = strings.ToLower(strings.Join(strings.Fields(input), " "))
	for _, n := range names {
		for _, alias := range n.aliases {
			if input == alias {
				return n.action
			}
		}
	}
	return ActionNone
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Action Action
	Input  string
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	suggestions := make([]string, 0, len(names))
	for _, n := range names {
		suggestions = append(suggestions, n.aliases[0])
	}

	ti := textinput.New()
	ti.Placeholder = "refresh, clear, logout..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(suggestions)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		out := CommandMsg{Action: Resolve(text), Input: text}
		return m, func() tea.Msg { return out }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Command"),
		m.input.View(),
		"",
		theme.HelpStyle.Render("tab completes | enter runs | esc cancels"),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus clears the input and gives it keyboard focus.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}
