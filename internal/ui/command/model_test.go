package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Action
	}{
		{"refresh", ActionRefresh},
		{"  Clear   All ", ActionClearAll},
		{"bell", ActionNotifications},
		{"log out", ActionLogout},
		{"q", ActionQuit},
		{"delete everything", ActionNone},
		{"", ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(tt.in))
		})
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	t.Parallel()

	m := New(80, 24)
	for _, r := range "sync" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg{Action: ActionRefresh, Input: "sync"}, cmd())

	// The input is cleared for the next use.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
