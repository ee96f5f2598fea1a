package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override
// (e.g. CAMPUSHUB_API_BASE_URL).
const EnvPrefix = "CAMPUSHUB"

// APIConfig holds the connection settings for the Campus Hub REST API.
type APIConfig struct {
	// BaseURL is the root URL of the API server.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// NotificationsPrefix is the path under which the notification
	// endpoints are mounted.
	NotificationsPrefix string `mapstructure:"notifications_prefix" yaml:"notifications_prefix"`

	// TimeoutSec bounds every request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"min=1,max=120"`
}

// SoundConfig controls the audible cue played when new notifications arrive.
type SoundConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bell writes a terminal BEL character.
	Bell bool `mapstructure:"bell" yaml:"bell"`

	// Command is an optional external player, e.g. "paplay".
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

// NotificationsConfig holds the notification center settings.
type NotificationsConfig struct {
	PollIntervalSec       int         `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec" validate:"min=5"`
	AlertDurationMs       int         `mapstructure:"alert_duration_ms" yaml:"alert_duration_ms" validate:"min=1"`
	DropdownLimit         int         `mapstructure:"dropdown_limit" yaml:"dropdown_limit" validate:"min=1,max=100"`
	RefreshMinIntervalSec int         `mapstructure:"refresh_min_interval_sec" yaml:"refresh_min_interval_sec" validate:"min=0"`
	Sound                 SoundConfig `mapstructure:"sound" yaml:"sound"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
	Display       DisplayConfig       `mapstructure:"display" yaml:"display"`
}

// PollInterval returns the notification polling cadence.
func (c NotificationsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// AlertDuration returns how long the bell keeps wiggling after new
// notifications arrive.
func (c NotificationsConfig) AlertDuration() time.Duration {
	return time.Duration(c.AlertDurationMs) * time.Millisecond
}

// RefreshMinInterval returns the minimum spacing of manual refreshes.
func (c NotificationsConfig) RefreshMinInterval() time.Duration {
	return time.Duration(c.RefreshMinIntervalSec) * time.Second
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ConfigDir returns ~/.config/campushub, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "campushub")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/campushub/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultLogPath is where the TUI writes its log when log.file is unset.
func DefaultLogPath() string {
	return filepath.Join(ConfigDir(), "campushub.log")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:             "https://campus-api-deploy.onrender.com",
			NotificationsPrefix: "/questions",
			TimeoutSec:          10,
		},
		Notifications: NotificationsConfig{
			PollIntervalSec:       30,
			AlertDurationMs:       600,
			DropdownLimit:         10,
			RefreshMinIntervalSec: 5,
			Sound: SoundConfig{
				Enabled: true,
				Bell:    true,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// setDefaults mirrors DefaultAppConfig into viper so env overrides and
// partial files resolve against the same values.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.notifications_prefix", d.API.NotificationsPrefix)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("notifications.poll_interval_sec", d.Notifications.PollIntervalSec)
	v.SetDefault("notifications.alert_duration_ms", d.Notifications.AlertDurationMs)
	v.SetDefault("notifications.dropdown_limit", d.Notifications.DropdownLimit)
	v.SetDefault("notifications.refresh_min_interval_sec", d.Notifications.RefreshMinIntervalSec)
	v.SetDefault("notifications.sound.enabled", d.Notifications.Sound.Enabled)
	v.SetDefault("notifications.sound.bell", d.Notifications.Sound.Bell)
	v.SetDefault("notifications.sound.command", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("display.theme", d.Display.Theme)
}

var validate = validator.New()

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded first, and CAMPUSHUB_*
// environment variables override file values. If the file does not
// exist, defaults (plus overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if len(cfg.Notifications.Sound.Args) == 0 {
		cfg.Notifications.Sound.Args = nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration against its validate tags and
// returns a readable summary of every failing field.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("notifications", cfg.Notifications)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
