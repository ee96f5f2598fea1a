// Package alert plays the short cue that accompanies new notifications.
// Every implementation is best-effort: callers log and drop errors.
package alert

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/nhle/campushub/internal/model"
)

// Alerter plays an audible cue.
type Alerter interface {
	Alert() error
}

// Nop never makes a sound.
type Nop struct{}

// Alert does nothing.
func (Nop) Alert() error { return nil }

// Bell rings the terminal bell by writing BEL to Out.
type Bell struct {
	mu  sync.Mutex
	Out io.Writer
}

// Alert writes a single BEL character.
func (b *Bell) Alert() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Out == nil {
		return errors.New("bell: no output")
	}
	if _, err := io.WriteString(b.Out, "\a"); err != nil {
		return fmt.Errorf("ringing bell: %w", err)
	}
	return nil
}

// Command starts an external audio player, e.g. "paplay notify.wav".
// It does not wait for playback to finish.
type Command struct {
	Path string
	Args []string
}

// Alert starts the player and reaps it in the background.
func (c Command) Alert() error {
	if c.Path == "" {
		return errors.New("sound command: empty path")
	}

	cmd := exec.Command(c.Path, c.Args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting sound command %s: %w", c.Path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Multi fires every alerter and joins their errors.
type Multi []Alerter

// Alert runs each alerter even when an earlier one fails.
func (m Multi) Alert() error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the alerter described by cfg. The bell writes to out.
func FromConfig(cfg model.SoundConfig, out io.Writer) Alerter {
	if !cfg.Enabled {
		return Nop{}
	}

	var m Multi
	if cfg.Bell && out != nil {
		m = append(m, &Bell{Out: out})
	}
	if cfg.Command != "" {
		m = append(m, Command{Path: cfg.Command, Args: cfg.Args})
	}

	switch len(m) {
	case 0:
		return Nop{}
	case 1:
		return m[0]
	default:
		return m
	}
}
