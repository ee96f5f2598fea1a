// Package cli wires configuration, logging and the Campus Hub components
// into the campushub command.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/credential"
	"github.com/nhle/campushub/internal/model"
	"github.com/nhle/campushub/internal/notify"
	"github.com/nhle/campushub/internal/session"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// runtime is the state shared by every subcommand.
type runtime struct {
	configPath string
	verbose    bool
	noKeyring  bool
	cfg        *model.AppConfig
	logFile    io.Closer
}

// New builds the root command.
func New() *cobra.Command {
	r := &runtime{}

	cmd := &cobra.Command{
		Use:           "campushub",
		Short:         "Campus Hub notifications in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			r.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runTUI(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "make output more verbose")
	cmd.PersistentFlags().BoolVar(&r.noKeyring, "no-keyring", false, "keep the login in memory for this run only")
	cmd.PersistentFlags().StringVar(&r.configPath, "config", "", "config file (default is "+model.DefaultConfigPath()+")")

	cmd.AddCommand(
		newRunCommand(r),
		newWatchCommand(r),
		newLoginCommand(r),
		newLogoutCommand(r),
		newWhoamiCommand(r),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the root command and reports a failure on stderr.
func Execute() int {
	if err := New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "campushub:", err)
		return 1
	}
	return 0
}

func (r *runtime) load(cmd *cobra.Command) error {
	if r.configPath == "" {
		r.configPath = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(r.configPath)
	if err != nil {
		return err
	}
	r.cfg = cfg

	// The TUI owns stdout, so its log goes to a file.
	toFile := cmd.Name() == "run" || cmd.Name() == "campushub"
	return r.setupLogging(toFile)
}

func (r *runtime) setupLogging(toFile bool) error {
	level, err := logrus.ParseLevel(r.cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	if r.verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if toFile {
		path := r.cfg.Log.File
		if path == "" {
			path = model.DefaultLogPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		r.logFile = f
		logrus.SetOutput(f)
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
		return nil
	}

	logrus.SetOutput(os.Stderr)
	if !r.verbose && !term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}
	return nil
}

func (r *runtime) close() {
	if r.logFile != nil {
		_ = r.logFile.Close()
		r.logFile = nil
	}
}

func (r *runtime) newClient() *api.Client {
	return api.NewClient(
		r.cfg.API.BaseURL,
		api.WithTimeout(r.cfg.API.Timeout()),
		api.WithNotificationsPrefix(r.cfg.API.NotificationsPrefix),
	)
}

func (r *runtime) openSession() (*session.Session, error) {
	if r.noKeyring {
		return session.New(session.NewMemoryStore()), nil
	}
	ring, err := credential.Open(model.ConfigDir())
	if err != nil {
		return nil, err
	}
	return session.New(ring), nil
}

func (r *runtime) newCenter(client *api.Client, alerter notify.Alerter, nav notify.Navigator) *notify.Center {
	n := r.cfg.Notifications

	// Zero in the config file means manual refresh is never throttled.
	refresh := n.RefreshMinInterval()
	if refresh == 0 {
		refresh = -1
	}

	return notify.New(client, notify.Options{
		Interval:       n.PollInterval(),
		AlertDuration:  n.AlertDuration(),
		RequestTimeout: r.cfg.API.Timeout(),
		RefreshEvery:   refresh,
		Alerter:        alerter,
		Navigator:      nav,
		Logger:         logrus.NewEntry(logrus.StandardLogger()),
	})
}
