package notify_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/tests/testutil"
)

const token = "tok-alice"

type alertCounter struct{ n atomic.Int32 }

func (a *alertCounter) Alert() error {
	a.n.Add(1)
	return nil
}

func newServerCenter(t *testing.T, interval time.Duration) (*testutil.FakeAPI, *notify.Center, *alertCounter, *[]string) {
	t.Helper()

	srv := testutil.NewFakeAPI(t, "/questions")
	srv.AddAccount("alice", testutil.Account{
		Password: "secret",
		Token:    token,
		User:     model.User{ID: "1", Username: "alice"},
	})

	log := logrus.New()
	log.SetOutput(io.Discard)

	alerts := &alertCounter{}
	var visited []string
	c := notify.New(api.NewClient(srv.URL()), notify.Options{
		Interval:      interval,
		AlertDuration: 20 * time.Millisecond,
		Alerter:       alerts,
		Navigator:     notify.NavigatorFunc(func(id string) { visited = append(visited, id) }),
		Logger:        logrus.NewEntry(log),
	})
	t.Cleanup(c.Close)
	return srv, c, alerts, &visited
}

func n(id string, read bool, questionID string) model.Notification {
	return model.Notification{
		ID:         id,
		Type:       model.NotificationTypeAnswer,
		Message:    "Someone answered your question",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		IsRead:     read,
		QuestionID: questionID,
	}
}

func TestCenterAgainstServer(t *testing.T) {
	srv, c, alerts, visited := newServerCenter(t, 20*time.Millisecond)
	ctx := context.Background()

	srv.SetNotifications(token, []model.Notification{n("1", false, "7"), n("2", false, "7"), n("3", false, "8")})
	c.Start(token)

	require.Eventually(t, func() bool { return c.State().UnreadCount == 3 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, alerts.n.Load())

	// Opening marks everything read on the server.
	c.ToggleOpen(ctx)
	assert.Zero(t, c.State().UnreadCount)
	assert.Zero(t, model.CountUnread(srv.Notifications(token)))
	assert.Equal(t, 1, srv.Count("PUT /questions/notifications/read"))
	c.CloseDropdown()

	// A new notification arrives on a later poll.
	srv.SetNotifications(token, append([]model.Notification{n("4", false, "9")}, srv.Notifications(token)...))
	require.Eventually(t, func() bool { return c.State().UnreadCount == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, alerts.n.Load())

	// Opening the new one marks it read and navigates.
	c.MarkOneRead(ctx, "4")
	assert.Equal(t, 1, srv.Count("PUT /questions/notifications/4/read"))
	assert.Equal(t, []string{"9"}, *visited)
	assert.Zero(t, c.State().UnreadCount)

	c.ClearAll(ctx)
	assert.True(t, c.State().Empty())
	assert.Empty(t, srv.Notifications(token))

	for _, r := range srv.Requests() {
		assert.Equal(t, "Bearer "+token, r.Auth, r.Method+" "+r.Path)
		assert.NotEmpty(t, r.RequestID)
	}
}

func TestCenterServerFailures(t *testing.T) {
	srv, c, _, visited := newServerCenter(t, time.Hour)
	ctx := context.Background()

	srv.SetNotifications(token, []model.Notification{n("1", false, "7")})
	c.Start(token)
	require.Eventually(t, func() bool { return c.State().UnreadCount == 1 }, time.Second, 5*time.Millisecond)

	srv.FailNext("PUT /questions/notifications/read", 1)
	c.ToggleOpen(ctx)
	assert.True(t, c.State().Open)
	assert.Equal(t, 1, c.State().UnreadCount)

	srv.FailNext("PUT /questions/notifications/1/read", 1)
	c.MarkOneRead(ctx, "1")
	assert.Empty(t, *visited)
	assert.Equal(t, 1, c.State().UnreadCount)

	srv.FailNext("DELETE /questions/notifications/clear", 1)
	c.ClearAll(ctx)
	assert.Len(t, c.State().Notifications, 1)
}

func TestCenterRejectedToken(t *testing.T) {
	_, c, alerts, _ := newServerCenter(t, time.Hour)

	c.Start("not-a-real-token")

	require.Eventually(t, func() bool { return c.State().LastError != "" }, time.Second, 5*time.Millisecond)
	st := c.State()
	assert.True(t, st.Active)
	assert.True(t, st.Empty())
	assert.Zero(t, alerts.n.Load())
}

func TestCenterStopDuringHeldPoll(t *testing.T) {
	srv, c, alerts, _ := newServerCenter(t, time.Hour)
	srv.SetNotifications(token, []model.Notification{n("1", false, "7")})
	release := srv.Hold("GET /questions/notifications")
	defer release()

	c.Start(token)
	require.Eventually(t, func() bool {
		return srv.Count("GET /questions/notifications") == 1
	}, time.Second, 5*time.Millisecond)

	c.Stop()

	assert.False(t, c.State().Active)
	assert.True(t, c.State().Empty())
	assert.Zero(t, alerts.n.Load())
}
