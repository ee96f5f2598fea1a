package app

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/internal/session"
	"github.com/nhle/campushub/internal/ui/command"
	"github.com/nhle/campushub/internal/ui/notiflist"
	"github.com/nhle/campushub/internal/ui/question"
)

type stubNotifications struct{}

func (stubNotifications) ListNotifications(context.Context, string) ([]model.Notification, error) {
	return nil, nil
}
func (stubNotifications) MarkAllNotificationsRead(context.Context, string) error     { return nil }
func (stubNotifications) MarkNotificationRead(context.Context, string, string) error { return nil }
func (stubNotifications) ClearNotifications(context.Context, string) error           { return nil }

type stubBackend struct{}

func (stubBackend) Login(_ context.Context, identifier, _ string) (*api.LoginResult, error) {
	return &api.LoginResult{Token: "tok", User: model.User{ID: "1", Username: identifier}}, nil
}

func (stubBackend) CheckUser(context.Context, string) (*model.User, error) {
	return nil, &api.AuthError{Message: "Invalid token"}
}

func (stubBackend) GetQuestion(_ context.Context, _ string, id string) (*model.Question, error) {
	return &model.Question{ID: id, Title: "Where is the library?"}, nil
}

func (stubBackend) ListAnswers(context.Context, string, string) ([]model.Answer, error) {
	return nil, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	center := notify.New(stubNotifications{}, notify.Options{
		Interval: time.Hour,
		Logger:   logrus.NewEntry(log),
	})
	t.Cleanup(center.Close)

	sess := session.New(session.NewMemoryStore())
	m := New(center, sess, stubBackend{}, NewRouter(), Options{})
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func signedIn(t *testing.T, m Model) Model {
	t.Helper()
	return update(t, m, sessionMsg{user: &model.User{ID: "1", Username: "alice", Role: model.RoleAdmin}})
}

func TestRouterKeepsLatestRequest(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	r.Navigate("1")
	r.Navigate("2")

	assert.Equal(t, navigateMsg{questionID: "2"}, r.waitForNavigation()())
}

func TestHeaderShowsUserAndBadge(t *testing.T) {
	t.Parallel()

	m := signedIn(t, newTestModel(t))
	m = update(t, m, stateMsg{state: notify.State{UnreadCount: 3, Active: true}})

	view := m.View()
	assert.Contains(t, view, "Campus Hub")
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "admin")
	assert.Contains(t, view, "3 new notifications")
}

func TestAlertStartsAndStopsWiggle(t *testing.T) {
	t.Parallel()

	m := signedIn(t, newTestModel(t))
	m = update(t, m, stateMsg{state: notify.State{UnreadCount: 1, Alerting: true, Active: true}})
	require.True(t, m.wiggling)

	first := m.bell()
	m = update(t, m, wiggleTickMsg{})
	assert.NotEqual(t, first, m.bell(), "bell should move between frames")

	m = update(t, m, stateMsg{state: notify.State{UnreadCount: 1, Active: true}})
	m = update(t, m, wiggleTickMsg{})
	assert.False(t, m.wiggling)
	assert.Zero(t, m.wiggleFrame)
}

func TestNavigateOpensQuestion(t *testing.T) {
	t.Parallel()

	m := signedIn(t, newTestModel(t))
	next, cmd := m.Update(navigateMsg{questionID: "7"})
	m = next.(Model)

	assert.Equal(t, ViewQuestion, m.currentView)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Loading question")

	m = update(t, m, question.LoadedMsg{ID: "7", Question: &model.Question{ID: "7", Title: "Where is the library?"}})
	assert.Contains(t, m.View(), "Where is the library?")

	m = update(t, m, question.BackMsg{})
	assert.Equal(t, ViewHome, m.currentView)
}

func TestLoadQuestion(t *testing.T) {
	t.Parallel()

	msg := loadQuestion(stubBackend{}, "tok", "7")()
	loaded, ok := msg.(question.LoadedMsg)
	require.True(t, ok)
	assert.Equal(t, "7", loaded.ID)
	require.NotNil(t, loaded.Question)
	assert.NoError(t, loaded.Err)
}

func TestOpenDropdownRoutesKeys(t *testing.T) {
	t.Parallel()

	m := signedIn(t, newTestModel(t))
	m = update(t, m, stateMsg{state: notify.State{
		Open:   true,
		Active: true,
		Notifications: []model.Notification{
			{ID: "n1", Message: "bob answered your question", QuestionID: "7"},
		},
	}})
	require.True(t, m.dropdownVisible())
	assert.Contains(t, m.View(), "bob answered your question")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, notiflist.OpenMsg{ID: "n1"}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("C")})
	require.NotNil(t, cmd)
	assert.Equal(t, notiflist.ClearAllMsg{}, cmd())
}

func TestSignedOutIgnoresNotificationKeys(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
	assert.Equal(t, ViewHome, next.(Model).currentView)
	assert.Contains(t, m.View(), "signed out")
}

func TestRestoreWithoutSessionShowsLogin(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	m = update(t, m, sessionMsg{err: session.ErrNotLoggedIn, restored: true})

	assert.Equal(t, ViewLogin, m.currentView)
	assert.Contains(t, m.View(), "Log in to Campus Hub")
}

func TestLoginFailureShowsMessage(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	require.Equal(t, ViewLogin, m.currentView)

	m = update(t, m, sessionMsg{err: &api.AuthError{Message: "Invalid credentials"}})
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Contains(t, m.View(), "Invalid credentials")

	m = update(t, m, sessionMsg{user: &model.User{Username: "alice"}})
	assert.Equal(t, ViewHome, m.currentView)
}

func TestLoginViewKeepsTypedKeys(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	m = update(t, m, sessionMsg{err: session.ErrNotLoggedIn, restored: true})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		_, quit := cmd().(tea.QuitMsg)
		assert.False(t, quit, "q must be typed into the form, not quit")
	}
}

func TestCtrlCQuits(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestLoginErrorText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Please enter your username/email and password.", loginErrorText(session.ErrMissingCredentials))
	assert.Equal(t, "Invalid credentials", loginErrorText(&api.AuthError{Message: "Invalid credentials"}))
	assert.Equal(t, "Login failed. Please try again.", loginErrorText(context.DeadlineExceeded))
}

func TestCommandPalette(t *testing.T) {
	t.Parallel()

	m := signedIn(t, newTestModel(t))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	require.Equal(t, ViewCommand, m.currentView)

	// Typed letters go to the palette, not to the global keys.
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, ViewCommand, next.(Model).currentView)

	m = update(t, m, command.CommandMsg{Action: command.ActionHelp, Input: "help"})
	assert.Equal(t, ViewHelp, m.currentView)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewHome, m.currentView)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	m = update(t, m, command.CommandMsg{Action: command.ActionNone, Input: "dance"})
	assert.Equal(t, ViewHome, m.currentView)
	assert.Contains(t, m.View(), `Unknown command "dance"`)
}
