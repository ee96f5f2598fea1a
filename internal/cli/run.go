package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/campushub/internal/alert"
	"github.com/nhle/campushub/internal/app"
)

func newRunCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runTUI(cmd)
		},
	}
}

func (r *runtime) runTUI(cmd *cobra.Command) error {
	sess, err := r.openSession()
	if err != nil {
		return err
	}
	client := r.newClient()
	router := app.NewRouter()

	// The renderer owns stdout; the bell goes to stderr, which is the
	// same terminal.
	center := r.newCenter(client, alert.FromConfig(r.cfg.Notifications.Sound, os.Stderr), router)
	center.Follow(sess)
	defer center.Close()

	logrus.WithField("base_url", client.BaseURL()).Info("starting terminal UI")

	m := app.New(center, sess, client, router, app.Options{
		DropdownLimit: r.cfg.Notifications.DropdownLimit,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
