package model

// Question is a forum question as shown when a notification is opened.
type Question struct {
	ID          string
	Title       string
	Description string
	Username    string
	TimeAgo     string
}

// Answer is a single answer posted under a question.
type Answer struct {
	ID        string
	Content   string
	Username  string
	TimeAgo   string
	VoteCount int
	UserVoted bool
}
