package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/campushub/internal/alert"
	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/internal/theme"
)

func newWatchCommand(r *runtime) *cobra.Command {
	var once bool
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for notifications without the UI",
		Long: "Follows the saved session and logs every change of the unread count.\n" +
			"With --once, fetches the list a single time and prints it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if limit <= 0 {
				limit = r.cfg.Notifications.DropdownLimit
			}
			if once {
				return r.printOnce(ctx, cmd.OutOrStdout(), limit)
			}
			return r.watch(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "fetch once, print and exit")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of notifications to print (default from config)")
	return cmd
}

func (r *runtime) printOnce(ctx context.Context, out io.Writer, limit int) error {
	sess, err := r.openSession()
	if err != nil {
		return err
	}
	client := r.newClient()
	if _, err := sess.Restore(ctx, client); err != nil {
		return fmt.Errorf("%w (run campushub login first)", err)
	}

	notifications, err := client.ListNotifications(ctx, sess.Token())
	if err != nil {
		return fmt.Errorf("fetching notifications: %s", api.ErrorMessage(err))
	}

	st := notify.State{
		Notifications: notifications,
		UnreadCount:   model.CountUnread(notifications),
	}
	_, err = fmt.Fprintln(out, renderTable(st, limit))
	return err
}

func (r *runtime) watch(ctx context.Context) error {
	sess, err := r.openSession()
	if err != nil {
		return err
	}
	client := r.newClient()
	user, err := sess.Restore(ctx, client)
	if err != nil {
		return fmt.Errorf("%w (run campushub login first)", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "watch",
		"username":  user.Username,
	})

	center := r.newCenter(client, alert.FromConfig(r.cfg.Notifications.Sound, os.Stdout), nil)
	center.Follow(sess)
	defer center.Close()

	log.WithField("interval", r.cfg.Notifications.PollInterval()).Info("watching notifications")

	reporter := &watchReporter{log: log, unread: -1}
	for {
		select {
		case <-ctx.Done():
			log.Info("signal caught, stopping")
			return nil
		case st := <-center.Updates():
			reporter.report(st)
		}
	}
}

// watchReporter logs the state changes worth a line.
type watchReporter struct {
	log     *logrus.Entry
	unread  int
	lastErr string
}

func (w *watchReporter) report(st notify.State) {
	if st.LastError != w.lastErr {
		w.lastErr = st.LastError
		if st.LastError != "" {
			w.log.WithField("error", st.LastError).Warn("poll failed")
		}
	}

	if st.LastPoll.IsZero() || st.UnreadCount == w.unread {
		return
	}
	w.unread = st.UnreadCount

	entry := w.log.WithField("unread", st.UnreadCount)
	if !st.Empty() {
		entry = entry.WithField("latest", st.Notifications[0].Message)
	}
	if st.Alerting {
		entry.Info("new notifications")
		return
	}
	entry.Info("unread count changed")
}

// renderTable prints the top limit notifications as a table.
func renderTable(st notify.State, limit int) string {
	if st.Empty() {
		return "No notifications"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("", "TYPE", "MESSAGE", "WHEN")

	for _, n := range st.Visible(limit) {
		mark := " "
		if !n.IsRead {
			mark = "●"
		}
		when := "unknown"
		if !n.CreatedAt.IsZero() {
			when = n.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(mark, n.Type.Icon(), n.Message, when)
	}

	return fmt.Sprintf("%s\n%d unread of %d", t.Render(), st.UnreadCount, len(st.Notifications))
}
