package app

import tea "github.com/charmbracelet/bubbletea"

// navigateMsg asks the UI to open a question.
type navigateMsg struct {
	questionID string
}

// Router carries navigation requests from the notification center to the
// Bubble Tea program. Only the latest pending request is kept.
type Router struct {
	ch chan string
}

// NewRouter creates a Router.
func NewRouter() *Router {
	return &Router{ch: make(chan string, 1)}
}

// Navigate queues questionID, replacing a request the UI has not picked
// up yet. It never blocks.
func (r *Router) Navigate(questionID string) {
	for {
		select {
		case r.ch <- questionID:
			return
		default:
		}
		select {
		case <-r.ch:
		default:
		}
	}
}

// waitForNavigation returns a command that blocks until the next
// navigation request.
func (r *Router) waitForNavigation() tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{questionID: <-r.ch}
	}
}
