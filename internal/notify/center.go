// Package notify implements the notification center: it polls the
// Campus Hub API for the signed-in user's notifications, tracks the
// unread count across polls, fires an alert when that count rises, and
// performs the mark-read and clear actions.
//
// State is only mutated after the server confirms an action. Every
// failure is logged and absorbed; nothing is returned to the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
)

const (
	DefaultInterval       = 30 * time.Second
	DefaultAlertDuration  = 600 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	DefaultRefreshEvery   = 5 * time.Second
)

// NotificationAPI is the subset of the Campus Hub API the center needs.
// *api.Client implements it.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, token string) ([]model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, token string) error
	MarkNotificationRead(ctx context.Context, token string, id string) error
	ClearNotifications(ctx context.Context, token string) error
}

// Alerter plays the audible cue. Errors are ignored.
type Alerter interface {
	Alert() error
}

// Navigator opens a question.
type Navigator interface {
	Navigate(questionID string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(questionID string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(questionID string) { f(questionID) }

// TokenSource supplies the session token and reports its changes.
// *session.Session implements it.
type TokenSource interface {
	Token() string
	Subscribe(fn func(token string)) (unsubscribe func())
}

// Options configures a Center. Zero values take the defaults above.
type Options struct {
	// Interval is the polling cadence.
	Interval time.Duration

	// AlertDuration is how long State.Alerting stays true after the
	// unread count rises.
	AlertDuration time.Duration

	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration

	// RefreshEvery is the minimum spacing of manual refreshes. Negative
	// disables the limit.
	RefreshEvery time.Duration

	Alerter   Alerter
	Navigator Navigator
	Logger    *logrus.Entry
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.AlertDuration <= 0 {
		o.AlertDuration = DefaultAlertDuration
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.RefreshEvery == 0 {
		o.RefreshEvery = DefaultRefreshEvery
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// Center is the notification center of one signed-in session. At most
// one poll loop runs per Center.
type Center struct {
	api     NotificationAPI
	opts    Options
	log     *logrus.Entry
	limiter *rate.Limiter

	mu sync.Mutex
	// gen changes on every token change and stop. Results issued under
	// an older generation are discarded.
	gen           uint64
	token         string
	loop          *pollLoop
	notifications []model.Notification
	prevUnread    int
	open          bool
	alerting      bool
	alertSeq      uint64
	alertTimer    *time.Timer
	lastPoll      time.Time
	lastErr       string
	unfollow      func()

	pubMu   sync.Mutex
	updates chan State
}

// New creates a stopped Center. Call Start or Follow to begin polling.
func New(client NotificationAPI, opts Options) *Center {
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.RefreshEvery > 0 {
		limit = rate.Every(opts.RefreshEvery)
	}

	return &Center{
		api:     client,
		opts:    opts,
		log:     opts.Logger.WithField("component", "notify"),
		limiter: rate.NewLimiter(limit, 1),
		updates: make(chan State, 1),
	}
}

// Updates delivers state snapshots. Only the latest undelivered snapshot
// is kept.
func (c *Center) Updates() <-chan State {
	return c.updates
}

// State returns a snapshot of the current state.
func (c *Center) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Notifications: cloneNotifications(c.notifications),
		UnreadCount:   c.prevUnread,
		Open:          c.open,
		Alerting:      c.alerting,
		Active:        c.loop != nil,
		LastPoll:      c.lastPoll,
		LastError:     c.lastErr,
	}
}

// OnFetchResult applies a full notification list as if a poll for the
// current session had just returned it.
func (c *Center) OnFetchResult(records []model.Notification) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	c.applyFetch(gen, records)
}

// applyFetch replaces the list wholesale and fires the alert when the
// unread count rose above the previous poll's count. It reports whether
// the result was applied.
func (c *Center) applyFetch(gen uint64, records []model.Notification) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.WithField("op", "poll").Debug("discarding stale poll result")
		return false
	}

	newUnread := model.CountUnread(records)
	rising := newUnread > c.prevUnread

	c.notifications = cloneNotifications(records)
	c.prevUnread = newUnread
	c.lastPoll = time.Now()
	c.lastErr = ""
	if rising {
		c.startAlertLocked()
	}
	c.mu.Unlock()

	if rising {
		c.playCue()
	}
	c.publish()
	return true
}

// ToggleOpen flips the dropdown. Opening it while there are unread
// notifications marks them all read on the server; the local list
// follows only when that succeeds.
func (c *Center) ToggleOpen(ctx context.Context) {
	c.mu.Lock()
	opening := !c.open
	c.open = !c.open
	gen, token, unread := c.gen, c.token, c.prevUnread
	c.mu.Unlock()
	c.publish()

	if !opening || unread == 0 || token == "" {
		return
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	if err := c.api.MarkAllNotificationsRead(ctx, token); err != nil {
		c.logFailure("mark_all_read", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.WithField("op", "mark_all_read").Debug("discarding stale result")
		return
	}
	for i := range c.notifications {
		c.notifications[i].IsRead = true
	}
	c.prevUnread = 0
	c.mu.Unlock()
	c.publish()
}

// CloseDropdown collapses the dropdown without any request.
func (c *Center) CloseDropdown() {
	c.mu.Lock()
	changed := c.open
	c.open = false
	c.mu.Unlock()

	if changed {
		c.publish()
	}
}

// MarkOneRead opens the notification with the given id. An unread
// notification is first marked read on the server; if that fails
// nothing happens. On success the dropdown closes and the navigator is
// sent to the notification's question.
func (c *Center) MarkOneRead(ctx context.Context, id string) {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		c.log.WithField("op", "mark_read").Debug("no session")
		return
	}
	idx := indexOf(c.notifications, id)
	if idx < 0 {
		c.mu.Unlock()
		c.log.WithField("op", "mark_read").WithField("id", id).Warn("notification not in current list")
		return
	}
	rec := c.notifications[idx]
	gen, token := c.gen, c.token

	if rec.IsRead {
		c.open = false
		c.mu.Unlock()
		c.publish()
		c.navigate(rec)
		return
	}
	c.mu.Unlock()

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	if err := c.api.MarkNotificationRead(ctx, token, id); err != nil {
		c.logFailure("mark_read", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.WithField("op", "mark_read").Debug("discarding stale result")
		return
	}
	if i := indexOf(c.notifications, id); i >= 0 {
		c.notifications[i].IsRead = true
	}
	if c.prevUnread > 0 {
		c.prevUnread--
	}
	c.open = false
	c.mu.Unlock()

	c.publish()
	c.navigate(rec)
}

// ClearAll deletes every notification on the server and, once that
// succeeds, empties the local list.
func (c *Center) ClearAll(ctx context.Context) {
	c.mu.Lock()
	gen, token := c.gen, c.token
	c.mu.Unlock()

	if token == "" {
		c.log.WithField("op", "clear").Debug("no session")
		return
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	if err := c.api.ClearNotifications(ctx, token); err != nil {
		c.logFailure("clear", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.WithField("op", "clear").Debug("discarding stale result")
		return
	}
	c.notifications = nil
	c.prevUnread = 0
	c.mu.Unlock()
	c.publish()
}

// startAlertLocked raises the alert flag and schedules its reset.
// A new alert restarts the window. c.mu must be held.
func (c *Center) startAlertLocked() {
	c.alerting = true
	c.alertSeq++
	seq := c.alertSeq

	if c.alertTimer != nil {
		c.alertTimer.Stop()
	}
	c.alertTimer = time.AfterFunc(c.opts.AlertDuration, func() {
		c.mu.Lock()
		if c.alertSeq != seq {
			c.mu.Unlock()
			return
		}
		c.alerting = false
		c.mu.Unlock()
		c.publish()
	})
}

// resetLocked returns the state to empty. c.mu must be held.
func (c *Center) resetLocked() {
	c.notifications = nil
	c.prevUnread = 0
	c.open = false
	c.alerting = false
	c.alertSeq++
	if c.alertTimer != nil {
		c.alertTimer.Stop()
		c.alertTimer = nil
	}
	c.lastPoll = time.Time{}
	c.lastErr = ""
}

func (c *Center) playCue() {
	if c.opts.Alerter == nil {
		return
	}
	if err := c.opts.Alerter.Alert(); err != nil {
		c.log.WithError(err).Debug("alert cue failed")
	}
}

func (c *Center) navigate(rec model.Notification) {
	if !rec.HasQuestion() {
		c.log.WithField("id", rec.ID).Debug("notification has no question to open")
		return
	}
	if c.opts.Navigator == nil {
		return
	}
	c.opts.Navigator.Navigate(rec.QuestionID)
}

func (c *Center) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.opts.RequestTimeout)
}

func (c *Center) logFailure(op string, err error) {
	entry := c.log.WithField("op", op).WithError(err)
	if code := api.StatusCode(err); code != 0 {
		entry = entry.WithField("status", code)
	}
	if api.IsAuthError(err) {
		entry.Warn("session rejected by server")
		return
	}
	entry.Warn("notification request failed")
}

// publish sends the current snapshot, replacing any undelivered one.
func (c *Center) publish() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	st := c.State()
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- st:
	default:
	}
}

func indexOf(notifications []model.Notification, id string) int {
	for i, n := range notifications {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func cloneNotifications(in []model.Notification) []model.Notification {
	if in == nil {
		return nil
	}
	out := make([]model.Notification, len(in))
	copy(out, in)
	return out
}
