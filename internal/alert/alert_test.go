package alert

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/campushub/internal/model"
)

type failingAlerter struct{ calls int }

func (f *failingAlerter) Alert() error {
	f.calls++
	return errors.New("blocked")
}

func TestBellWritesBEL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := &Bell{Out: &buf}
	require.NoError(t, b.Alert())
	require.NoError(t, b.Alert())
	assert.Equal(t, "\a\a", buf.String())
}

func TestBellWithoutOutput(t *testing.T) {
	t.Parallel()

	assert.Error(t, (&Bell{}).Alert())
}

func TestCommandMissingBinary(t *testing.T) {
	t.Parallel()

	err := Command{Path: "/nonexistent/campushub-player"}.Alert()
	assert.Error(t, err)
	assert.Error(t, Command{}.Alert())
}

func TestMultiRunsAllAndJoinsErrors(t *testing.T) {
	t.Parallel()

	first := &failingAlerter{}
	var buf bytes.Buffer
	m := Multi{first, &Bell{Out: &buf}}

	err := m.Alert()
	assert.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, "\a", buf.String())
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	tests := []struct {
		name string
		cfg  model.SoundConfig
		want interface{}
	}{
		{name: "disabled", cfg: model.SoundConfig{Enabled: false, Bell: true}, want: Nop{}},
		{name: "nothing configured", cfg: model.SoundConfig{Enabled: true}, want: Nop{}},
		{name: "bell only", cfg: model.SoundConfig{Enabled: true, Bell: true}, want: &Bell{}},
		{name: "command only", cfg: model.SoundConfig{Enabled: true, Command: "paplay"}, want: Command{}},
		{name: "bell and command", cfg: model.SoundConfig{Enabled: true, Bell: true, Command: "paplay"}, want: Multi{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.IsType(t, tt.want, FromConfig(tt.cfg, &buf))
		})
	}
}
