package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/campushub/internal/model"
)

// flexString accepts a JSON string, number or null. The API returns
// MySQL auto-increment ids as numbers in some routes and strings in others.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = flexString(num.String())
	return nil
}

// flexBool accepts true/false, 0/1 and their string forms. MySQL
// TINYINT columns arrive as numbers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(raw) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("expected boolean, got %s", data)
		}
		*b = n != 0
	}
	return nil
}

// timestampLayouts are tried in order when decoding created_at.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// notificationRecord is the wire form of a notification.
type notificationRecord struct {
	ID         flexString `json:"id"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	CreatedAt  string     `json:"created_at"`
	IsRead     flexBool   `json:"is_read"`
	QuestionID flexString `json:"question_id"`
}

func (r notificationRecord) toModel() model.Notification {
	return model.Notification{
		ID:         string(r.ID),
		Type:       model.NotificationType(r.Type),
		Message:    r.Message,
		CreatedAt:  parseTimestamp(r.CreatedAt),
		IsRead:     bool(r.IsRead),
		QuestionID: string(r.QuestionID),
	}
}

// notificationsResponse is the response from GET /notifications.
type notificationsResponse struct {
	Notifications []notificationRecord `json:"notifications"`
}

// loginRequest is the body of POST /users/login.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResult is the token and account returned by a successful login.
type LoginResult struct {
	Token string
	User  model.User
}

type loginResponse struct {
	Token    string     `json:"token"`
	UserID   flexString `json:"userid"`
	Username string     `json:"username"`
	Role     string     `json:"role"`
}

type checkUserResponse struct {
	UserID   flexString `json:"userid"`
	Username string     `json:"username"`
	Role     string     `json:"role"`
}

type questionRecord struct {
	ID          flexString `json:"id"`
	QuestionID  flexString `json:"question_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Username    string     `json:"username"`
	TimeAgo     string     `json:"time_ago"`
}

func (r questionRecord) toModel() model.Question {
	id := string(r.ID)
	if id == "" {
		id = string(r.QuestionID)
	}
	return model.Question{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		Username:    r.Username,
		TimeAgo:     r.TimeAgo,
	}
}

type questionResponse struct {
	Question *questionRecord `json:"question"`
}

type answerRecord struct {
	ID        flexString `json:"id"`
	Content   string     `json:"content"`
	Username  string     `json:"username"`
	TimeAgo   string     `json:"time_ago"`
	VoteCount int        `json:"vote_count"`
	UserVoted flexBool   `json:"user_voted"`
}

func (r answerRecord) toModel() model.Answer {
	return model.Answer{
		ID:        string(r.ID),
		Content:   r.Content,
		Username:  r.Username,
		TimeAgo:   r.TimeAgo,
		VoteCount: r.VoteCount,
		UserVoted: bool(r.UserVoted),
	}
}

type answersResponse struct {
	Answers []answerRecord `json:"answers"`
}
