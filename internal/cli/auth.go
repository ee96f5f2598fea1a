package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/session"
)

func newLoginCommand(r *runtime) *cobra.Command {
	var identifier string
	var baseURL string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL != "" {
				r.cfg.API.BaseURL = strings.TrimRight(baseURL, "/")
				if err := r.cfg.Validate(); err != nil {
					return err
				}
				if err := model.SaveConfig(r.configPath, r.cfg); err != nil {
					return err
				}
			}

			var password string
			if passwordStdin {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}
			if identifier == "" || password == "" {
				if err := promptCredentials(&identifier, &password); err != nil {
					return err
				}
			}

			sess, err := r.openSession()
			if err != nil {
				return err
			}
			user, err := sess.Login(cmd.Context(), r.newClient(), identifier, password)
			if err != nil {
				if api.StatusCode(err) != 0 {
					return errors.New(api.ErrorMessage(err))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&identifier, "user", "u", "", "username or email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API server to use, saved to the config file")
	return cmd
}

func newLogoutCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := r.openSession()
			if err != nil {
				return err
			}
			if err := sess.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account of the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := r.openSession()
			if err != nil {
				return err
			}
			user, err := sess.Restore(cmd.Context(), r.newClient())
			if errors.Is(err, session.ErrNotLoggedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (id %s)", user.Username, user.ID)
			if user.IsAdmin() {
				fmt.Fprint(out, " admin")
			}
			fmt.Fprintln(out)
			if exp, ok := sess.ExpiresAt(); ok {
				fmt.Fprintf(out, "session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Overrides the root hook: no config or logging needed.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "campushub", Version)
		},
	}
}

func readPassword(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptCredentials(identifier, password *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username or email").
				Value(identifier),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	).WithOutput(os.Stderr)

	if err := form.Run(); err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}
	return nil
}
