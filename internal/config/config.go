package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CalDAVConfig describes the CalDAV account to pull events from.
type CalDAVConfig struct {
	// URL is the calendar home endpoint. Empty derives the Fastmail
	// per-user URL from Username.
	URL string `yaml:"url" json:"url"`
	// Username is the account email address.
	Username string `yaml:"username" json:"username"`
	// Password is an app password for the account.
	Password string `yaml:"password" json:"password"`
}

// FeedConfig describes a single ICS subscription source.
type FeedConfig struct {
	// Name is the display name shown in rendered output.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
}

// EmailConfig selects and configures the delivery provider.
type EmailConfig struct {
	// Provider is "smtp" or "resend".
	Provider string `yaml:"provider" json:"provider"`
	// From is the sender address. Empty defaults to the CalDAV username.
	From string `yaml:"from" json:"from"`
	// To is the recipient. Empty defaults to From.
	To string `yaml:"to" json:"to"`

	SMTPHost string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port" json:"smtp_port"`
	// SMTPUsername/SMTPPassword default to the CalDAV credentials, the
	// common case for a single mail-and-calendar account.
	SMTPUsername string `yaml:"smtp_username" json:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password" json:"smtp_password"`

	ResendAPIKey string `yaml:"resend_api_key" json:"resend_api_key"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the preview server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the preview server.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone, when set, overrides timezone detection (IANA identifier).
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultTimezone is the fallback when no timezone can be detected.
	DefaultTimezone string `yaml:"default_timezone" json:"default_timezone"`

	// Schedule is a cron expression for the daily send in serve mode.
	Schedule string `yaml:"schedule" json:"schedule"`

	// DisplayName personalizes the email greeting when non-empty.
	DisplayName string `yaml:"display_name" json:"display_name"`

	// Calendars filters CalDAV calendars by display name
	// (case-insensitive). Empty means all calendars.
	Calendars []string `yaml:"calendars" json:"calendars"`

	// CalDAV, if non-nil, enables the CalDAV account source.
	CalDAV *CalDAVConfig `yaml:"caldav,omitempty" json:"caldav,omitempty"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	Email EmailConfig `yaml:"email" json:"email"`

	// CacheDir is where feed bodies and HTTP cache metadata are stored.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// BasicAuth, if non-nil, protects the preview server (except /health).
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		DefaultTimezone: "UTC",
		Schedule:        "0 7 * * *",
		Calendars:       []string{},
		Feeds:           []FeedConfig{},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPHost: "smtp.fastmail.com",
			SMTPPort: 465,
		},
		CacheDir: "./var/ics-cache",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = "UTC"
	}
	if c.Schedule == "" {
		c.Schedule = "0 7 * * *"
	}
	if c.Calendars == nil {
		c.Calendars = []string{}
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}

	switch c.Email.Provider {
	case "smtp", "resend":
	default:
		c.Email.Provider = "smtp"
	}
	if c.Email.SMTPHost == "" {
		c.Email.SMTPHost = "smtp.fastmail.com"
	}
	if c.Email.SMTPPort <= 0 {
		c.Email.SMTPPort = 465
	}
	if c.CalDAV != nil {
		if c.Email.From == "" {
			c.Email.From = c.CalDAV.Username
		}
		if c.Email.SMTPUsername == "" {
			c.Email.SMTPUsername = c.CalDAV.Username
		}
		if c.Email.SMTPPassword == "" {
			c.Email.SMTPPassword = c.CalDAV.Password
		}
		if c.CalDAV.URL == "" && c.CalDAV.Username != "" {
			c.CalDAV.URL = "https://caldav.fastmail.com/dav/calendars/user/" + c.CalDAV.Username + "/"
		}
	}
	if c.Email.To == "" {
		c.Email.To = c.Email.From
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned; otherwise the file is read, unmarshaled and normalized.
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

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions; the config holds an app password.
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

	tmp, err := os.CreateTemp(dir, ".agendamail-config-*.tmp")
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
