// Package question shows the question a notification points at, with its
// answers.
package question

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"

	"github.com/nhle/campushub/internal/keys"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/theme"
)

// BackMsg signals the parent to navigate back.
type BackMsg struct{}

// LoadedMsg carries a loaded question and its answers.
type LoadedMsg struct {
	ID       string
	Question *model.Question
	Answers  []model.Answer
	Err      error
}

// Model is the question view component.
type Model struct {
	id       string
	question *model.Question
	answers  []model.Answer
	err      error
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new question view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the question view.
func (m Model) Init() tea.Cmd {
	return nil
}

// StartLoading clears the view and waits for the question with id.
func (m *Model) StartLoading(id string) {
	m.id = id
	m.question = nil
	m.answers = nil
	m.err = nil
	m.loading = true
}

// ID returns the id of the question being shown or loaded.
func (m Model) ID() string {
	return m.id
}

// Update handles messages for the question view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.ID != m.id {
			return m, nil
		}
		m.question = msg.Question
		m.answers = msg.Answers
		m.err = msg.Err
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the question view.
func (m Model) View() string {
	centered := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return centered.Render("Loading question...")
	case m.err != nil:
		return centered.Render(theme.ErrorStyle.Render("Could not load question: " + m.err.Error()))
	case m.question == nil:
		return centered.Render("No question selected")
	}

	return m.viewport.View()
}

// renderContent builds the full question content for the viewport.
func (m Model) renderContent() string {
	if m.question == nil {
		return ""
	}

	q := m.question
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(q.Title))

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	meta := "asked"
	if q.Username != "" {
		meta += " by " + q.Username
	}
	if q.TimeAgo != "" {
		meta += " · " + q.TimeAgo
	}
	sections = append(sections, metaStyle.Render(meta), "")

	body := PlainText(q.Description)
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, wrap(body, m.width))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, headerStyle.Render(fmt.Sprintf("Answers (%d)", len(m.answers))), "")

	if len(m.answers) == 0 {
		sections = append(sections, metaStyle.Italic(true).Render("No answers yet"))
	}

	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	voteStyle := lipgloss.NewStyle().Foreground(theme.ColorGreen)
	for _, a := range m.answers {
		votes := fmt.Sprintf("▲ %d", a.VoteCount)
		if a.UserVoted {
			votes = voteStyle.Render(votes)
		} else {
			votes = metaStyle.Render(votes)
		}
		sections = append(sections,
			fmt.Sprintf("%s  %s  %s", authorStyle.Render(a.Username), metaStyle.Render(a.TimeAgo), votes),
			wrap(PlainText(a.Content), m.width),
			"",
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the question view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.question != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

var (
	strict = bluemonday.StrictPolicy()

	// blockBreaks turns block-level tags into line breaks before the
	// markup is stripped.
	blockBreaks = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6])\s*/?>`)
	listItems   = regexp.MustCompile(`(?i)<\s*li[^>]*>`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// PlainText reduces rich-text HTML posted from the web editor to plain
// text for the terminal.
func PlainText(s string) string {
	s = blockBreaks.ReplaceAllString(s, "\n")
	s = listItems.ReplaceAllString(s, "• ")
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func wrap(s string, width int) string {
	if width <= 4 {
		return s
	}
	return lipgloss.NewStyle().Width(min(width-4, 100)).Render(s)
}
