package notify

import (
	"time"

	"github.com/nhle/campushub/internal/model"
)

// State is a snapshot of a Center.
type State struct {
	// Notifications is in server order, newest first.
	Notifications []model.Notification

	// UnreadCount is the counter carried across polls. Right after a
	// mark-read it may lead the list until the next poll lands.
	UnreadCount int

	Open     bool
	Alerting bool

	// Active is true while a session token is set and polling runs.
	Active bool

	LastPoll  time.Time
	LastError string
}

// Visible returns at most limit notifications from the top of the list.
func (s State) Visible(limit int) []model.Notification {
	if limit <= 0 || limit >= len(s.Notifications) {
		return s.Notifications
	}
	return s.Notifications[:limit]
}

// Empty reports whether there is nothing to show.
func (s State) Empty() bool {
	return len(s.Notifications) == 0
}
