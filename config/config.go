// Package config loads and validates the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kellertobias/calmirror/internal/domain"
	"github.com/kellertobias/calmirror/internal/errs"
)

// CalDAVConfig holds credentials for the calendar provider.
type CalDAVConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SchedulerConfig controls the periodic reconciliation loop.
type SchedulerConfig struct {
	// IntervalSeconds is one of the presets 300, 900, 1800 or 3600.
	// Anything else snaps to 900.
	IntervalSeconds int  `yaml:"interval_seconds"`
	HorizonDays     int  `yaml:"horizon_days"`
	Diagnostics     bool `yaml:"diagnostics"`
}

// TelegramConfig, if present, enables run notifications over Telegram.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// HoursConfig selects the calendars for the activatable-hours report.
type HoursConfig struct {
	Calendar          string `yaml:"calendar"`
	ExclusionCalendar string `yaml:"exclusion_calendar"`
	Percent           int    `yaml:"percent"`
}

// Config is the top-level daemon configuration.
type Config struct {
	Timezone     string              `yaml:"timezone"`
	DatabasePath string              `yaml:"database_path"`
	CalDAV       CalDAVConfig        `yaml:"caldav"`
	Scheduler    SchedulerConfig     `yaml:"scheduler"`
	Telegram     *TelegramConfig     `yaml:"telegram,omitempty"`
	Hours        *HoursConfig        `yaml:"hours,omitempty"`
	Syncs        []domain.SyncConfig `yaml:"syncs"`
}

var intervalPresets = map[int]bool{300: true, 900: true, 1800: true, 3600: true}

// Load reads, normalizes and validates the configuration file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills missing or out-of-range values with defaults so partial
// configs still behave. Sync configurations without an identifier get a
// deterministic one derived from their name, which keeps legacy ownership
// markers stable across restarts.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/calmirror.db"
	}
	if !intervalPresets[c.Scheduler.IntervalSeconds] {
		c.Scheduler.IntervalSeconds = 900
	}
	if c.Scheduler.HorizonDays <= 0 {
		c.Scheduler.HorizonDays = 30
	}
	if c.Hours != nil && (c.Hours.Percent <= 0 || c.Hours.Percent > 100) {
		c.Hours.Percent = 100
	}

	for i := range c.Syncs {
		s := &c.Syncs[i]
		if s.ID == "" {
			s.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("calmirror:"+s.Name)).String()
		}
		if s.HorizonDays <= 0 {
			s.HorizonDays = c.Scheduler.HorizonDays
		}
	}
}

// Validate rejects configurations the engine cannot run safely.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, errs.ErrConfigurationInvalid)
	}
	if c.CalDAV.Username == "" || c.CalDAV.Password == "" {
		return fmt.Errorf("caldav credentials: %w", errs.ErrAuthorizationMissing)
	}

	seen := make(map[string]bool, len(c.Syncs))
	for i := range c.Syncs {
		s := &c.Syncs[i]
		if s.Name == "" {
			return fmt.Errorf("sync %d has no name: %w", i, errs.ErrConfigurationInvalid)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate sync name %q: %w", s.Name, errs.ErrConfigurationInvalid)
		}
		seen[s.Name] = true

		if s.SourceCalendar == "" || s.TargetCalendar == "" {
			return fmt.Errorf("sync %q: source and target calendars required: %w", s.Name, errs.ErrConfigurationInvalid)
		}
		if s.SourceCalendar == s.TargetCalendar {
			return fmt.Errorf("sync %q: source and target must differ: %w", s.Name, errs.ErrConfigurationInvalid)
		}
		if !s.Mode.IsValid() {
			return fmt.Errorf("sync %q: unknown mode %q: %w", s.Name, s.Mode, errs.ErrConfigurationInvalid)
		}
		for _, f := range s.Filters {
			if !f.Kind.IsValid() {
				return fmt.Errorf("sync %q: unknown filter kind %q: %w", s.Name, f.Kind, errs.ErrConfigurationInvalid)
			}
		}
		for _, w := range s.Windows {
			start, err := domain.ParseClock(w.Start)
			if err != nil {
				return fmt.Errorf("sync %q: window start %q: %w", s.Name, w.Start, errs.ErrConfigurationInvalid)
			}
			end, err := domain.ParseClock(w.End)
			if err != nil {
				return fmt.Errorf("sync %q: window end %q: %w", s.Name, w.End, errs.ErrConfigurationInvalid)
			}
			if start >= end {
				return fmt.Errorf("sync %q: window %s-%s is empty: %w", s.Name, w.Start, w.End, errs.ErrConfigurationInvalid)
			}
		}
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Interval returns the reconciliation interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}
