package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// UserConfig describes one household member the parser can recognize.
type UserConfig struct {
	// ID is the canonical identity, also used as the calendar registry key.
	ID string `yaml:"id" json:"id"`
	// Aliases are additional names that refer to this user in utterances.
	Aliases []string `yaml:"aliases" json:"aliases"`
	// Color is the calendar display color id for this user's events.
	Color string `yaml:"color" json:"color"`
	// Phones are SMS sender numbers belonging to this user.
	Phones []string `yaml:"phones" json:"phones"`
	// SportsCalendar marks users with a dedicated "<id>-baseball" calendar.
	SportsCalendar bool `yaml:"sports_calendar" json:"sports_calendar"`
}

// WriterConfig selects where routed events are written.
type WriterConfig struct {
	// Backend is "ics" (one iCalendar file per calendar) or "sqlite".
	Backend    string `yaml:"backend" json:"backend"`
	ICSDir     string `yaml:"ics_dir" json:"ics_dir"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// RetentionConfig controls periodic pruning of old events.
type RetentionConfig struct {
	// Cron is a standard 5-field cron spec. Empty disables pruning.
	Cron string `yaml:"cron" json:"cron"`
	// KeepDays is how long after its end an event is kept.
	KeepDays int `yaml:"keep_days" json:"keep_days"`
}

// SMSConfig throttles the SMS webhook per sender number.
type SMSConfig struct {
	RatePerMinute float64 `yaml:"rate_per_minute" json:"rate_per_minute"`
	Burst         int     `yaml:"burst" json:"burst"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the intake API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the single IANA zone all utterances are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Users []UserConfig `yaml:"users" json:"users"`

	// FamilyAliases are names that refer to the whole household.
	FamilyAliases []string `yaml:"family_aliases" json:"family_aliases"`

	// Calendars maps routing keys ("family", "mason", "mason-baseball")
	// to calendar identifiers.
	Calendars map[string]string `yaml:"calendars" json:"calendars"`

	// SportsKeywords flag an utterance as a sports event.
	SportsKeywords []string `yaml:"sports_keywords" json:"sports_keywords"`

	Writer    WriterConfig    `yaml:"writer" json:"writer"`
	Retention RetentionConfig `yaml:"retention" json:"retention"`
	SMS       SMSConfig       `yaml:"sms" json:"sms"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// EnvCalendarPrefix is the environment prefix for calendar ID overrides,
// e.g. FAMCAL_CAL_MASON_BASEBALL=abc@group.calendar.google.com.
const EnvCalendarPrefix = "FAMCAL_CAL_"

var defaultSportsKeywords = []string{"baseball", "practice", "game", "tournament"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Timezone:       "America/Denver",
		LogLevel:       "info",
		Users:          []UserConfig{},
		FamilyAliases:  []string{"family", "everyone"},
		Calendars:      map[string]string{"family": "family"},
		SportsKeywords: append([]string(nil), defaultSportsKeywords...),
		Writer: WriterConfig{
			Backend: "ics",
			ICSDir:  "/var/lib/famcal/calendars",
		},
		Retention: RetentionConfig{
			Cron:     "0 3 * * *",
			KeepDays: 90,
		},
		SMS: SMSConfig{
			RatePerMinute: 6,
			Burst:         3,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Denver"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Users == nil {
		c.Users = []UserConfig{}
	}
	if c.FamilyAliases == nil {
		c.FamilyAliases = []string{"family", "everyone"}
	}
	if c.Calendars == nil {
		c.Calendars = map[string]string{}
	}
	if c.SportsKeywords == nil {
		c.SportsKeywords = append([]string(nil), defaultSportsKeywords...)
	}

	switch c.Writer.Backend {
	case "ics", "sqlite":
		// ok
	default:
		c.Writer.Backend = "ics"
	}
	if c.Writer.ICSDir == "" {
		c.Writer.ICSDir = "/var/lib/famcal/calendars"
	}
	if c.Writer.SQLitePath == "" {
		c.Writer.SQLitePath = "/var/lib/famcal/events.db"
	}

	if c.Retention.KeepDays <= 0 {
		c.Retention.KeepDays = 90
	}
	if c.SMS.RatePerMinute <= 0 {
		c.SMS.RatePerMinute = 6
	}
	if c.SMS.Burst <= 0 {
		c.SMS.Burst = 3
	}
}

// ApplyEnv overlays calendar IDs from environment entries ("KEY=VALUE").
// FAMCAL_CAL_MASON_BASEBALL sets calendars["mason-baseball"].
func (c *Config) ApplyEnv(environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvCalendarPrefix) || value == "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvCalendarPrefix))
		key = strings.ReplaceAll(key, "_", "-")
		if key == "" {
			continue
		}
		if c.Calendars == nil {
			c.Calendars = map[string]string{}
		}
		c.Calendars[key] = value
	}
}

// minPhoneDigits is the shortest number UserForPhone matches by suffix, so
// a configured national number still matches a sender with a country code.
const minPhoneDigits = 10

// UserForPhone returns the user ID owning an SMS sender number.
// Numbers are compared on their digits only.
func (c *Config) UserForPhone(phone string) (string, bool) {
	want := digits(phone)
	if want == "" {
		return "", false
	}
	for _, u := range c.Users {
		for _, p := range u.Phones {
			if phoneMatch(digits(p), want) {
				return strings.ToLower(u.ID), true
			}
		}
	}
	return "", false
}

func phoneMatch(configured, sender string) bool {
	if configured == "" {
		return false
	}
	if configured == sender {
		return true
	}
	if len(configured) < minPhoneDigits || len(sender) < minPhoneDigits {
		return false
	}
	return strings.HasSuffix(sender, configured) || strings.HasSuffix(configured, sender)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".famcal-config-*.tmp")
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, leaving the file with 0600 permissions.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
