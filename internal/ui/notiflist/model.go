// Package notiflist is the notification dropdown hanging under the bell.
package notiflist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/campushub/internal/keys"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/internal/theme"
)

// DefaultLimit is how many notifications the dropdown shows.
const DefaultLimit = 10

// OpenMsg is sent when the user opens a notification.
type OpenMsg struct {
	ID string
}

// ClearAllMsg is sent when the user asks to clear every notification.
type ClearAllMsg struct{}

// CloseMsg is sent when the user dismisses the dropdown.
type CloseMsg struct{}

// Model is the dropdown component.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	limit  int
	unread int
	total  int
	width  int
	height int
}

// New creates an empty dropdown showing at most limit items.
func New(k *keys.KeyMap, limit, width, height int) Model {
	if limit <= 0 {
		limit = DefaultLimit
	}

	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)

	m := Model{
		list:  l,
		keys:  k,
		limit: limit,
	}
	m.SetSize(width, height)
	return m
}

// SetState replaces the items with the visible part of st.
func (m *Model) SetState(st notify.State) tea.Cmd {
	visible := st.Visible(m.limit)
	items := make([]list.Item, len(visible))
	for i, n := range visible {
		items[i] = NotificationItem{Notification: n}
	}
	m.unread = st.UnreadCount
	m.total = len(st.Notifications)
	return m.list.SetItems(items)
}

// Len returns the number of items shown.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Update handles key input for the dropdown.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(NotificationItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return OpenMsg{ID: item.Notification.ID}
			}

		case key.Matches(msg, m.keys.ClearAll):
			if m.total == 0 {
				return m, nil
			}
			return m, func() tea.Msg { return ClearAllMsg{} }

		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the dropdown panel.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Notifications")
	if m.unread > 0 {
		title += " " + theme.BadgeStyle.Render(fmt.Sprintf("%d new", m.unread))
	}

	header := title
	if m.total > 0 {
		clearHint := theme.HelpStyle.Render("C clear all")
		gap := m.contentWidth() - lipgloss.Width(title) - lipgloss.Width(clearHint)
		if gap < 1 {
			gap = 1
		}
		header = title + lipgloss.NewStyle().Width(gap).Render("") + clearHint
	}

	var body string
	if m.total == 0 {
		body = lipgloss.NewStyle().
			Width(m.contentWidth()).
			Align(lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("\nNo notifications\n\nWhen you get notifications, they'll appear here\n")
	} else {
		body = m.list.View()
	}

	return theme.DropdownStyle.
		Width(m.innerWidth()).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

// SetSize updates the dropdown dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(m.contentWidth(), max(height-4, 2))
}

// innerWidth is the dropdown's content width: at most 60 columns.
func (m Model) innerWidth() int {
	w := m.width - 4
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}

// contentWidth is what remains inside the frame's padding.
func (m Model) contentWidth() int {
	return m.innerWidth() - theme.DropdownStyle.GetHorizontalPadding()
}
