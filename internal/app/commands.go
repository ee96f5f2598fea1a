package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/internal/session"
	"github.com/nhle/campushub/internal/ui/question"
)

// wiggleFrame is the interval between bell animation frames.
const wiggleFrame = 100 * time.Millisecond

// stateMsg carries a notification center snapshot.
type stateMsg struct {
	state notify.State
}

// sessionMsg reports the outcome of a login or session restore.
type sessionMsg struct {
	user     *model.User
	err      error
	restored bool
}

// loggedOutMsg is sent once the session has been cleared.
type loggedOutMsg struct {
	err error
}

// wiggleTickMsg advances the bell animation.
type wiggleTickMsg struct{}

// waitForUpdate returns a command that blocks until the center publishes
// a new snapshot.
func waitForUpdate(c *notify.Center) tea.Cmd {
	return func() tea.Msg {
		return stateMsg{state: <-c.Updates()}
	}
}

func wiggleTick() tea.Cmd {
	return tea.Tick(wiggleFrame, func(time.Time) tea.Msg {
		return wiggleTickMsg{}
	})
}

// centerCmd runs a notification center action off the render loop. The
// resulting state arrives through waitForUpdate.
func centerCmd(fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(context.Background())
		return nil
	}
}

func restoreSession(s *session.Session, auth session.Authenticator) tea.Cmd {
	return func() tea.Msg {
		user, err := s.Restore(context.Background(), auth)
		return sessionMsg{user: user, err: err, restored: true}
	}
}

func submitLogin(s *session.Session, auth session.Authenticator, identifier, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := s.Login(context.Background(), auth, identifier, password)
		return sessionMsg{user: user, err: err}
	}
}

func logout(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: s.Logout()}
	}
}

func loadQuestion(b Backend, token, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()

		q, err := b.GetQuestion(ctx, token, id)
		if err != nil {
			return question.LoadedMsg{ID: id, Err: errors.New(api.ErrorMessage(err))}
		}
		answers, err := b.ListAnswers(ctx, token, id)
		if err != nil {
			// The question is still worth showing without its answers.
			answers = nil
		}
		return question.LoadedMsg{ID: id, Question: q, Answers: answers}
	}
}

// loginErrorText turns a login failure into the message shown on the form.
func loginErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrMissingCredentials):
		return "Please enter your username/email and password."
	case api.StatusCode(err) != 0:
		return api.ErrorMessage(err)
	default:
		return "Login failed. Please try again."
	}
}
