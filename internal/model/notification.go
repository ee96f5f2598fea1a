package model

import "time"

// NotificationType identifies what kind of activity produced a notification.
// It only affects how the notification is displayed.
type NotificationType string

const (
	NotificationTypeAnswer NotificationType = "answer"
	NotificationTypeLike   NotificationType = "like"
)

// Icon returns the glyph shown next to a notification of this type.
// Unknown types are treated as broadcasts.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationTypeAnswer:
		return "💬"
	case NotificationTypeLike:
		return "👍"
	default:
		return "📢"
	}
}

// Notification is a single notification record owned by the server.
type Notification struct {
	// ID is stable across fetches.
	ID string `json:"id"`

	// Type determines the display affordance only.
	Type NotificationType `json:"type"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// CreatedAt is assigned by the server. The zero value means the
	// server sent a timestamp the client could not parse.
	CreatedAt time.Time `json:"created_at"`

	// IsRead is server-owned; the client only flips it after a
	// confirmed mark-read call.
	IsRead bool `json:"is_read"`

	// QuestionID links the notification to a question. Empty when the
	// notification is not about a question.
	QuestionID string `json:"question_id,omitempty"`
}

// HasQuestion reports whether the notification can be navigated to.
func (n Notification) HasQuestion() bool {
	return n.QuestionID != ""
}

// CountUnread returns the number of records with IsRead == false.
func CountUnread(notifications []Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}
