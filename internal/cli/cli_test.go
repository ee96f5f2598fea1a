package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
)

func TestNoKeyringSessionStaysInMemory(t *testing.T) {
	r := &runtime{noKeyring: true}

	sess, err := r.openSession()
	require.NoError(t, err)
	assert.Empty(t, sess.Token())

	require.NoError(t, sess.Set("tok", &model.User{ID: "1", Username: "alice"}))
	assert.Equal(t, "tok", sess.Token())

	// A second session in the same process starts empty.
	other, err := r.openSession()
	require.NoError(t, err)
	assert.Empty(t, other.Token())
}

func TestVersionCommand(t *testing.T) {
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "campushub dev\n", out.String())
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	st := notify.State{
		Notifications: []model.Notification{
			{ID: "1", Type: model.NotificationTypeAnswer, Message: "bob answered your question"},
			{ID: "2", Type: model.NotificationTypeLike, Message: "carol liked your answer", IsRead: true},
			{ID: "3", Message: "exam timetable published"},
		},
		UnreadCount: 2,
	}

	out := renderTable(st, 2)
	assert.Contains(t, out, "bob answered your question")
	assert.Contains(t, out, "carol liked your answer")
	assert.NotContains(t, out, "exam timetable published")
	assert.Contains(t, out, "2 unread of 3")

	assert.Equal(t, "No notifications", renderTable(notify.State{}, 10))
}

func TestWatchReporter(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	w := &watchReporter{log: logrus.NewEntry(logger), unread: -1}

	// Before the first poll there is nothing to report.
	w.report(notify.State{Active: true})
	assert.Empty(t, hook.AllEntries())

	polled := time.Now()
	w.report(notify.State{
		Notifications: []model.Notification{{ID: "1", Message: "bob answered your question"}},
		UnreadCount:   1,
		Alerting:      true,
		LastPoll:      polled,
	})
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "new notifications", hook.LastEntry().Message)
	assert.Equal(t, "bob answered your question", hook.LastEntry().Data["latest"])

	// Same count: quiet.
	w.report(notify.State{UnreadCount: 1, LastPoll: polled})
	assert.Len(t, hook.AllEntries(), 1)

	w.report(notify.State{UnreadCount: 1, LastPoll: polled, LastError: "connection refused"})
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	w.report(notify.State{UnreadCount: 0, LastPoll: polled})
	require.Len(t, hook.AllEntries(), 3)
	assert.Equal(t, "unread count changed", hook.LastEntry().Message)
}
