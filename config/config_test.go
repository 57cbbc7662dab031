package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kellertobias/calmirror/internal/domain"
	"github.com/kellertobias/calmirror/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validYAML = `
timezone: Europe/Berlin
caldav:
  username: user@example.com
  password: app-secret
scheduler:
  interval_seconds: 900
  horizon_days: 14
syncs:
  - name: work-to-private
    source_calendar: /cal/work/
    target_calendar: /cal/private/
    mode: blockerOnly
    blocker_template: "Blocked: {sourceTitle}"
    enabled: true
    filters:
      - kind: no_all_day
    windows:
      - weekday: 1
        start: "09:00"
        end: "17:00"
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "Europe/Berlin", cfg.Timezone)
	require.Equal(t, "Europe/Berlin", cfg.Location().String())
	require.Len(t, cfg.Syncs, 1)

	s := cfg.Syncs[0]
	require.Equal(t, domain.ModeBlockerOnly, s.Mode)
	require.NotEmpty(t, s.ID, "missing sync id must be derived")
	require.Equal(t, 14, s.HorizonDays, "sync inherits the scheduler horizon")
}

func TestDerivedSyncIDIsStable(t *testing.T) {
	a, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	b, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Equal(t, a.Syncs[0].ID, b.Syncs[0].ID)
}

func TestIntervalSnapsToPreset(t *testing.T) {
	cfg := &Config{Scheduler: SchedulerConfig{IntervalSeconds: 600}}
	cfg.Normalize()
	require.Equal(t, 900, cfg.Scheduler.IntervalSeconds)

	cfg = &Config{Scheduler: SchedulerConfig{IntervalSeconds: 3600}}
	cfg.Normalize()
	require.Equal(t, 3600, cfg.Scheduler.IntervalSeconds)
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, validYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"same source and target", func(c *Config) { c.Syncs[0].TargetCalendar = c.Syncs[0].SourceCalendar }},
		{"unknown mode", func(c *Config) { c.Syncs[0].Mode = "mirror" }},
		{"unknown filter kind", func(c *Config) { c.Syncs[0].Filters[0].Kind = "title_rhymes_with" }},
		{"inverted window", func(c *Config) { c.Syncs[0].Windows[0].End = "08:00" }},
		{"unparseable window", func(c *Config) { c.Syncs[0].Windows[0].Start = "nine" }},
		{"missing name", func(c *Config) { c.Syncs[0].Name = "" }},
		{"duplicate names", func(c *Config) { c.Syncs = append(c.Syncs, c.Syncs[0]) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), errs.ErrConfigurationInvalid)
		})
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	cfg.CalDAV.Password = ""
	require.ErrorIs(t, cfg.Validate(), errs.ErrAuthorizationMissing)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
