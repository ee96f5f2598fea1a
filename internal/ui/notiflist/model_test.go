package notiflist

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/campushub/internal/keys"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
)

func notifications(n int) []model.Notification {
	out := make([]model.Notification, n)
	for i := range out {
		out[i] = model.Notification{
			ID:      fmt.Sprintf("n%d", i+1),
			Type:    model.NotificationTypeAnswer,
			Message: fmt.Sprintf("answer %d", i+1),
		}
	}
	return out
}

func TestSetStateShowsFirstTen(t *testing.T) {
	t.Parallel()

	m := New(keys.DefaultKeyMap(), DefaultLimit, 80, 40)
	m.SetState(notify.State{Notifications: notifications(12), UnreadCount: 12})

	assert.Equal(t, 10, m.Len())
	view := m.View()
	assert.Contains(t, view, "12 new")
	assert.Contains(t, view, "C clear all")
	assert.Contains(t, view, "answer 1")
}

func TestHeaderFitsOnOneLine(t *testing.T) {
	t.Parallel()

	for _, width := range []int{50, 80, 120} {
		m := New(keys.DefaultKeyMap(), DefaultLimit, width, 40)
		m.SetState(notify.State{Notifications: notifications(3), UnreadCount: 3})

		lines := strings.Split(m.View(), "\n")
		require.Greater(t, len(lines), 2)
		// lines[0] is the top border.
		assert.Contains(t, lines[1], "Notifications", "width %d", width)
		assert.Contains(t, lines[1], "C clear all", "width %d", width)
		assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(lines[1]), "width %d", width)
	}
}

func TestEmptyDropdown(t *testing.T) {
	t.Parallel()

	m := New(keys.DefaultKeyMap(), DefaultLimit, 80, 40)
	m.SetState(notify.State{})

	assert.Contains(t, m.View(), "No notifications")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("C")})
	assert.Nil(t, cmd, "nothing to clear")
}

func TestKeysEmitMessages(t *testing.T) {
	t.Parallel()

	m := New(keys.DefaultKeyMap(), DefaultLimit, 80, 40)
	m.SetState(notify.State{Notifications: notifications(3), UnreadCount: 3})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, OpenMsg{ID: "n2"}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestRelativeTime(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Equal(t, "", relativeTime(time.Time{}))
	assert.Equal(t, "just now", relativeTime(now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "1h ago", relativeTime(now.Add(-time.Hour-time.Minute)))
	assert.Equal(t, "3d ago", relativeTime(now.Add(-3*24*time.Hour-time.Minute)))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a long me…", truncate("a long message", 10))
	assert.Equal(t, "two lines", truncate("two\nlines", 20))
}
