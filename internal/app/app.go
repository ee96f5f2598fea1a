package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/campushub/internal/keys"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/internal/session"
	"github.com/nhle/campushub/internal/theme"
	"github.com/nhle/campushub/internal/ui"
	"github.com/nhle/campushub/internal/ui/command"
	helpview "github.com/nhle/campushub/internal/ui/help"
	"github.com/nhle/campushub/internal/ui/login"
	"github.com/nhle/campushub/internal/ui/notiflist"
	"github.com/nhle/campushub/internal/ui/question"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewHome ViewState = iota
	ViewQuestion
	ViewLogin
	ViewHelp
	ViewCommand
)

// Backend is the part of the REST API the UI calls directly.
// *api.Client implements it.
type Backend interface {
	session.Authenticator
	GetQuestion(ctx context.Context, token string, id string) (*model.Question, error)
	ListAnswers(ctx context.Context, token string, questionID string) ([]model.Answer, error)
}

// Options tunes the root model.
type Options struct {
	// DropdownLimit caps the notifications listed under the bell.
	DropdownLimit int
}

// Model is the root Bubble Tea model. It routes between views and keeps
// the header bell in step with the notification center.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	center  *notify.Center
	session *session.Session
	backend Backend
	router  *Router

	dropdown     notiflist.Model
	questionView question.Model
	loginView    login.Model
	helpView     helpview.Model
	commandView  command.Model

	state         notify.State
	user          *model.User
	wiggling      bool
	wiggleFrame   int
	statusMessage string
	ready         bool
}

// New creates the root model. The center should already follow sess and
// navigate through router.
func New(
	center *notify.Center,
	sess *session.Session,
	backend Backend,
	router *Router,
	opts Options,
) Model {
	k := keys.DefaultKeyMap()
	m := Model{
		currentView:  ViewHome,
		keys:         k,
		center:       center,
		session:      sess,
		backend:      backend,
		router:       router,
		dropdown:     notiflist.New(k, opts.DropdownLimit, 80, 24),
		questionView: question.New(k, 80, 24),
		loginView:    login.New(80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
		state:        center.State(),
		user:         sess.User(),
	}
	m.dropdown.SetState(m.state)
	return m
}

// Init starts listening to the center and the router. When no session
// is active yet the stored one is restored.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForUpdate(m.center),
		m.router.waitForNavigation(),
	}
	if m.user == nil {
		cmds = append(cmds, restoreSession(m.session, m.backend))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.dropdown.SetSize(contentWidth, contentHeight)
		m.questionView.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case stateMsg:
		m.state = msg.state
		cmds := []tea.Cmd{
			m.dropdown.SetState(msg.state),
			waitForUpdate(m.center),
		}
		if msg.state.Alerting && !m.wiggling {
			m.wiggling = true
			m.wiggleFrame = 0
			cmds = append(cmds, wiggleTick())
		}
		return m, tea.Batch(cmds...)

	case wiggleTickMsg:
		if !m.state.Alerting {
			m.wiggling = false
			m.wiggleFrame = 0
			return m, nil
		}
		m.wiggleFrame++
		return m, wiggleTick()

	case navigateMsg:
		if m.currentView != ViewQuestion {
			m.previousView = m.currentView
		}
		m.currentView = ViewQuestion
		m.questionView.StartLoading(msg.questionID)
		return m, tea.Batch(
			loadQuestion(m.backend, m.session.Token(), msg.questionID),
			m.router.waitForNavigation(),
		)

	case question.LoadedMsg:
		var cmd tea.Cmd
		m.questionView, cmd = m.questionView.Update(msg)
		return m, cmd

	case question.BackMsg:
		m.currentView = ViewHome
		return m, nil

	case notiflist.OpenMsg:
		c, id := m.center, msg.ID
		return m, centerCmd(func(ctx context.Context) { c.MarkOneRead(ctx, id) })

	case notiflist.ClearAllMsg:
		return m, centerCmd(m.center.ClearAll)

	case notiflist.CloseMsg:
		m.center.CloseDropdown()
		return m, nil

	case sessionMsg:
		return m.handleSession(msg)

	case loggedOutMsg:
		m.user = nil
		m.statusMessage = ""
		if msg.err != nil {
			m.statusMessage = "Logged out, but the saved session could not be removed"
		}
		m.currentView = ViewLogin
		m.previousView = ViewHome
		m.loginView.ClearError()
		return m, m.loginView.Start()

	case login.SubmitMsg:
		return m, submitLogin(m.session, m.backend, msg.Identifier, msg.Password)

	case login.CancelMsg:
		m.currentView = ViewHome
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentView == ViewLogin || m.currentView == ViewCommand {
			// Text input owns the keyboard; only esc leaves.
			if key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
				if m.currentView == ViewLogin {
					m.currentView = ViewHome
				}
				return m, nil
			}
			break
		}
		if m.dropdownVisible() {
			if key.Matches(msg, m.keys.Notifications) {
				return m, m.toggleNotifications()
			}
			var cmd tea.Cmd
			m.dropdown, cmd = m.dropdown.Update(msg)
			return m, cmd
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey handles the keys that work on every view except the
// text inputs.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.toggleHelp()
		return nil, true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Notifications):
		return m.toggleNotifications(), true

	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
		return nil, true

	case key.Matches(msg, m.keys.Login):
		if m.user != nil {
			return nil, false
		}
		return m.startLogin(), true

	case key.Matches(msg, m.keys.Logout):
		if m.user == nil {
			return nil, true
		}
		return logout(m.session), true
	}
	return nil, false
}

// executeCommand runs an action picked in the command palette.
func (m *Model) executeCommand(msg command.CommandMsg) tea.Cmd {
	switch msg.Action {
	case command.ActionNotifications:
		return m.toggleNotifications()
	case command.ActionRefresh:
		m.refresh()
		return nil
	case command.ActionClearAll:
		if m.user == nil {
			return nil
		}
		return centerCmd(m.center.ClearAll)
	case command.ActionLogin:
		if m.user != nil {
			return nil
		}
		return m.startLogin()
	case command.ActionLogout:
		if m.user == nil {
			return nil
		}
		return logout(m.session)
	case command.ActionHelp:
		m.toggleHelp()
		return nil
	case command.ActionQuit:
		return tea.Quit
	default:
		m.statusMessage = fmt.Sprintf("Unknown command %q", msg.Input)
		return nil
	}
}

func (m *Model) toggleNotifications() tea.Cmd {
	if m.user == nil {
		return nil
	}
	if m.currentView == ViewHelp {
		m.currentView = m.previousView
	}
	return centerCmd(m.center.ToggleOpen)
}

func (m *Model) refresh() {
	if m.user == nil {
		return
	}
	if m.center.Refresh() {
		m.statusMessage = ""
	} else {
		m.statusMessage = "Already checking, try again in a moment"
	}
}

func (m *Model) toggleHelp() {
	if m.currentView == ViewHelp {
		m.currentView = m.previousView
		return
	}
	m.previousView = m.currentView
	m.currentView = ViewHelp
}

func (m *Model) startLogin() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewLogin
	return m.loginView.Start()
}

func (m Model) handleSession(msg sessionMsg) (tea.Model, tea.Cmd) {
	if msg.err == nil {
		m.user = msg.user
		m.statusMessage = ""
		m.loginView.ClearError()
		if m.currentView == ViewLogin {
			m.currentView = ViewHome
		}
		return m, nil
	}

	if msg.restored {
		m.currentView = ViewLogin
		m.previousView = ViewHome
		if errors.Is(msg.err, session.ErrNotLoggedIn) {
			m.loginView.ClearError()
			return m, m.loginView.Start()
		}
		return m, m.loginView.SetError("Could not reach Campus Hub. Log in again or try later.")
	}
	return m, m.loginView.SetError(loginErrorText(msg.err))
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewQuestion:
		m.questionView, cmd = m.questionView.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// dropdownVisible reports whether the notification list hangs under the
// bell.
func (m Model) dropdownVisible() bool {
	return m.state.Open && m.user != nil &&
		(m.currentView == ViewHome || m.currentView == ViewQuestion)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Campus Hub", m.headerRight())
	content := lipgloss.NewStyle().
		Height(m.layout.ContentHeight()).
		MaxHeight(m.layout.ContentHeight()).
		Render(m.renderContent())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	if m.dropdownVisible() {
		return m.layout.PlaceRight(m.dropdown.View())
	}

	switch m.currentView {
	case ViewQuestion:
		return m.questionView.View()
	case ViewLogin:
		return m.loginView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return m.homeView()
	}
}

func (m Model) homeView() string {
	centered := lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center)

	if m.user == nil {
		return centered.Render(theme.HelpStyle.Render("You are signed out. Press l to log in."))
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).
			Render("Signed in as " + m.user.Username),
		"",
	}
	switch m.state.UnreadCount {
	case 0:
		lines = append(lines, "No new notifications")
	case 1:
		lines = append(lines, "1 new notification")
	default:
		lines = append(lines, fmt.Sprintf("%d new notifications", m.state.UnreadCount))
	}
	if !m.state.LastPoll.IsZero() {
		lines = append(lines, theme.DimmedStyle.Render("Last checked "+m.state.LastPoll.Format("15:04:05")))
	}
	lines = append(lines, "", theme.HelpStyle.Render("Press n to open notifications"))

	return centered.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

// headerRight renders the account and bell segment of the header.
func (m Model) headerRight() string {
	if m.user == nil {
		return theme.DimmedStyle.Render("signed out")
	}

	account := m.user.Username
	if m.user.IsAdmin() {
		account += " " + theme.AdminBadgeStyle.Render("admin")
	}
	return account + "  " + m.bell()
}

// bell renders the bell and its unread badge. While an alert plays the
// glyph shifts one column back and forth every frame.
func (m Model) bell() string {
	glyph := "🔔 "
	if m.wiggling && m.wiggleFrame%2 == 1 {
		glyph = " 🔔"
	}
	bell := theme.BellStyle(m.state.Alerting).Render(glyph)
	if m.state.UnreadCount > 0 {
		bell += theme.BadgeStyle.Render(fmt.Sprintf("%d", m.state.UnreadCount))
	}
	return bell
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMessage != "" && m.currentView == ViewHome {
		return m.statusMessage
	}
	if m.state.LastError != "" && m.currentView == ViewHome && m.user != nil {
		return "⚠ " + m.state.LastError
	}

	switch {
	case m.dropdownVisible():
		return "enter open | C clear all | j/k move | esc close"
	case m.currentView == ViewHelp:
		return "? close help | esc back"
	case m.currentView == ViewQuestion:
		return "esc back | j/k scroll | n notifications"
	case m.currentView == ViewLogin:
		return "enter submit | tab next field | esc cancel"
	case m.currentView == ViewCommand:
		return "enter run | tab complete | esc cancel"
	case m.user == nil:
		return "l log in | ? help | q quit"
	default:
		return strings.Join([]string{"q quit", "? help", "n notifications", "r refresh", ": command", "L log out"}, " | ")
	}
}
