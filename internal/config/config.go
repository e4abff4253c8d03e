package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials protecting the Web
// UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// UIConfig carries the tunable rendering parameters. They default to
// the stock values of the original UI and rarely need changing.
type UIConfig struct {
	// MonthMaxChips caps event chips per month cell before "+N more".
	MonthMaxChips int `yaml:"month_max_chips" json:"month_max_chips"`
	// AgendaDays is the agenda view's lookahead window.
	AgendaDays int `yaml:"agenda_days" json:"agenda_days"`
	// HourHeightPx is the timed lane's pixels per hour.
	HourHeightPx float64 `yaml:"hour_height_px" json:"hour_height_px"`
	// MinBlockHeightPx keeps very short events clickable.
	MinBlockHeightPx float64 `yaml:"min_block_height_px" json:"min_block_height_px"`
	// SnapMinutes rounds timed-lane clicks to this step.
	SnapMinutes int `yaml:"snap_minutes" json:"snap_minutes"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA display timezone (e.g. "Europe/Berlin").
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// SessionTTLMinutes is how long an idle session keeps its
	// credentials before it is purged.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" json:"session_ttl_minutes"`

	// PurgeCron is a cron-style schedule for sweeping expired
	// sessions (e.g. "*/15 * * * *").
	PurgeCron string `yaml:"purge_cron" json:"purge_cron"`

	// DemoOnly forces every connection into demo mode, ignoring any
	// submitted server credentials. Useful for public deployments.
	DemoOnly bool `yaml:"demo_only" json:"demo_only"`

	// UI holds the view tuning parameters.
	UI UIConfig `yaml:"ui" json:"ui"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		Timezone:          "",
		LogLevel:          "info",
		SessionTTLMinutes: 720,
		PurgeCron:         "*/15 * * * *",
		DemoOnly:          false,
		UI: UIConfig{
			MonthMaxChips:    4,
			AgendaDays:       30,
			HourHeightPx:     48,
			MinBlockHeightPx: 20,
			SnapMinutes:      30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills missing/zero values with defaults so partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = def.SessionTTLMinutes
	}
	if c.PurgeCron == "" {
		c.PurgeCron = def.PurgeCron
	}
	if c.UI.MonthMaxChips <= 0 {
		c.UI.MonthMaxChips = def.UI.MonthMaxChips
	}
	if c.UI.AgendaDays <= 0 {
		c.UI.AgendaDays = def.UI.AgendaDays
	}
	if c.UI.HourHeightPx <= 0 {
		c.UI.HourHeightPx = def.UI.HourHeightPx
	}
	if c.UI.MinBlockHeightPx <= 0 {
		c.UI.MinBlockHeightPx = def.UI.MinBlockHeightPx
	}
	if c.UI.SnapMinutes <= 0 {
		c.UI.SnapMinutes = def.UI.SnapMinutes
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent directory created) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
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

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calweb-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
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
