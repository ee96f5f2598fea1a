package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/campushub/internal/model"
)

// Account is a user the fake API accepts at /users/login.
type Account struct {
	Password string
	Token    string
	User     model.User
}

// Request is a request the fake API received.
type Request struct {
	Method    string
	Path      string
	Auth      string
	RequestID string
}

// FakeAPI is an in-process stand-in for the Campus Hub REST API. It
// serves the notification, user and question routes with the same JSON
// shapes as the real server (numeric ids, 0/1 read flags).
type FakeAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	prefix        string
	accounts      map[string]Account
	notifications map[string][]model.Notification
	questions     map[string]model.Question
	answers       map[string][]model.Answer
	failures      map[string]int
	gates         map[string]chan struct{}
	requests      []Request
}

// NewFakeAPI starts a fake API whose notification routes live under
// prefix (e.g. "/questions"). The server is closed when the test ends.
func NewFakeAPI(t *testing.T, prefix string) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		prefix:        strings.TrimRight(prefix, "/"),
		accounts:      make(map[string]Account),
		notifications: make(map[string][]model.Notification),
		questions:     make(map[string]model.Question),
		answers:       make(map[string][]model.Answer),
		failures:      make(map[string]int),
		gates:         make(map[string]chan struct{}),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(func() {
		f.mu.Lock()
		for key, gate := range f.gates {
			close(gate)
			delete(f.gates, key)
		}
		f.mu.Unlock()
		f.Server.Close()
	})
	return f
}

// URL returns the base URL of the fake server.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// AddAccount registers a login identifier.
func (f *FakeAPI) AddAccount(identifier string, acct Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[identifier] = acct
}

// SetNotifications replaces the notifications returned for token.
func (f *FakeAPI) SetNotifications(token string, notifications []model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[token] = append([]model.Notification(nil), notifications...)
}

// Notifications returns the server-side notifications of token.
func (f *FakeAPI) Notifications(token string) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.notifications[token]...)
}

// AddQuestion registers a question and its answers.
func (f *FakeAPI) AddQuestion(q model.Question, answers []model.Answer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions[q.ID] = q
	f.answers[q.ID] = answers
}

// FailNext makes the next n requests matching "METHOD /path" answer with
// status 500.
func (f *FakeAPI) FailNext(route string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] += n
}

// Hold blocks requests matching "METHOD /path" until the returned
// release function is called.
func (f *FakeAPI) Hold(route string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.gates[route]; ok {
		close(prev)
	}
	gate := make(chan struct{})
	f.gates[route] = gate
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gates[route] == gate {
			delete(f.gates, route)
			close(gate)
		}
	}
}

// Requests returns every request received so far.
func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Count returns how many requests matched "METHOD /path".
func (f *FakeAPI) Count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method+" "+r.Path == route {
			n++
		}
	}
	return n
}

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)

	r.Post("/users/login", f.login)
	r.Get("/users/check-user", f.authed(f.checkUser))
	r.Get("/answers/question/{id}", f.authed(f.listAnswers))

	notif := f.prefix + "/notifications"
	r.Get(notif, f.authed(f.listNotifications))
	r.Put(notif+"/read", f.authed(f.markAllRead))
	r.Put(notif+"/{id}/read", f.authed(f.markRead))
	r.Delete(notif+"/clear", f.authed(f.clear))

	// Registered after the notification routes so that a "/questions"
	// prefix does not shadow them.
	r.Get("/questions/{id}", f.authed(f.getQuestion))

	return r
}

// record logs the request, then applies any hold or injected failure.
func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.requests = append(f.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		gate := f.gates[route]
		fail := f.failures[route] > 0
		if fail {
			f.failures[route]--
		}
		f.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"message": "injected failure",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authed rejects requests whose bearer token matches no account.
func (f *FakeAPI) authed(h func(http.ResponseWriter, *http.Request, Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		var acct Account
		found := false
		for _, a := range f.accounts {
			if a.Token != "" && a.Token == token {
				acct = a
				found = true
				break
			}
		}
		f.mu.Unlock()

		if !found {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"message": "invalid or expired token",
			})
			return
		}
		h(w, r, acct)
	}
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
		return
	}

	f.mu.Lock()
	acct, ok := f.accounts[body.Identifier]
	f.mu.Unlock()

	if !ok || acct.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"message": "Invalid credentials",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    acct.Token,
		"userid":   wireID(acct.User.ID),
		"username": acct.User.Username,
		"role":     acct.User.Role,
	})
}

func (f *FakeAPI) checkUser(w http.ResponseWriter, _ *http.Request, acct Account) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userid":   wireID(acct.User.ID),
		"username": acct.User.Username,
		"role":     acct.User.Role,
	})
}

func (f *FakeAPI) listNotifications(w http.ResponseWriter, _ *http.Request, acct Account) {
	f.mu.Lock()
	list := f.notifications[acct.Token]
	out := make([]map[string]interface{}, 0, len(list))
	for _, n := range list {
		read := 0
		if n.IsRead {
			read = 1
		}
		var questionID interface{}
		if n.QuestionID != "" {
			questionID = wireID(n.QuestionID)
		}
		out = append(out, map[string]interface{}{
			"id":          wireID(n.ID),
			"type":        string(n.Type),
			"message":     n.Message,
			"created_at":  n.CreatedAt.UTC().Format(time.RFC3339),
			"is_read":     read,
			"question_id": questionID,
		})
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": out})
}

func (f *FakeAPI) markAllRead(w http.ResponseWriter, _ *http.Request, acct Account) {
	f.mu.Lock()
	list := f.notifications[acct.Token]
	for i := range list {
		list[i].IsRead = true
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

func (f *FakeAPI) markRead(w http.ResponseWriter, r *http.Request, acct Account) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	list := f.notifications[acct.Token]
	found := false
	for i := range list {
		if list[i].ID == id {
			list[i].IsRead = true
			found = true
		}
	}
	f.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Notification not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (f *FakeAPI) clear(w http.ResponseWriter, _ *http.Request, acct Account) {
	f.mu.Lock()
	delete(f.notifications, acct.Token)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Notifications cleared"})
}

func (f *FakeAPI) getQuestion(w http.ResponseWriter, r *http.Request, _ Account) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	q, ok := f.questions[id]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Question not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"question": map[string]interface{}{
			"id":          wireID(q.ID),
			"title":       q.Title,
			"description": q.Description,
			"username":    q.Username,
			"time_ago":    q.TimeAgo,
		},
	})
}

func (f *FakeAPI) listAnswers(w http.ResponseWriter, r *http.Request, _ Account) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	answers := f.answers[id]
	out := make([]map[string]interface{}, 0, len(answers))
	for _, a := range answers {
		voted := 0
		if a.UserVoted {
			voted = 1
		}
		out = append(out, map[string]interface{}{
			"id":         wireID(a.ID),
			"content":    a.Content,
			"username":   a.Username,
			"time_ago":   a.TimeAgo,
			"vote_count": a.VoteCount,
			"user_voted": voted,
		})
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"answers": out})
}

// wireID renders numeric ids as JSON numbers, like the real server.
func wireID(id string) interface{} {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
