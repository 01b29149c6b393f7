package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.Equal(t, "0 7 * * *", cfg.Schedule)
	assert.Equal(t, "smtp", cfg.Email.Provider)
	assert.Equal(t, 465, cfg.Email.SMTPPort)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
timezone: Europe/Paris
display_name: Sam
caldav:
  username: sam@fastmail.com
  password: app-password
feeds:
  - name: Holidays
    url: https://example.com/holidays.ics
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, "Sam", cfg.DisplayName)
	require.NotNil(t, cfg.CalDAV)
	assert.Equal(t, "sam@fastmail.com", cfg.CalDAV.Username)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Holidays", cfg.Feeds[0].Name)

	// Normalize ran: defaults are filled in.
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "smtp.fastmail.com", cfg.Email.SMTPHost)
}

func TestNormalize_DerivesFromCalDAV(t *testing.T) {
	cfg := &Config{
		CalDAV: &CalDAVConfig{
			Username: "sam@fastmail.com",
			Password: "app-password",
		},
	}
	cfg.Normalize()

	assert.Equal(t, "sam@fastmail.com", cfg.Email.From)
	assert.Equal(t, "sam@fastmail.com", cfg.Email.To)
	assert.Equal(t, "sam@fastmail.com", cfg.Email.SMTPUsername)
	assert.Equal(t, "app-password", cfg.Email.SMTPPassword)
	assert.Equal(t,
		"https://caldav.fastmail.com/dav/calendars/user/sam@fastmail.com/",
		cfg.CalDAV.URL)
}

func TestNormalize_DoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &Config{
		CalDAV: &CalDAVConfig{
			URL:      "https://dav.example.com/cal/",
			Username: "sam@fastmail.com",
			Password: "app-password",
		},
		Email: EmailConfig{
			Provider: "resend",
			From:     "agenda@example.com",
			To:       "inbox@example.com",
		},
	}
	cfg.Normalize()

	assert.Equal(t, "https://dav.example.com/cal/", cfg.CalDAV.URL)
	assert.Equal(t, "resend", cfg.Email.Provider)
	assert.Equal(t, "agenda@example.com", cfg.Email.From)
	assert.Equal(t, "inbox@example.com", cfg.Email.To)
}

func TestNormalize_UnknownProviderFallsBackToSMTP(t *testing.T) {
	cfg := &Config{Email: EmailConfig{Provider: "pigeon"}}
	cfg.Normalize()
	assert.Equal(t, "smtp", cfg.Email.Provider)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Timezone = "Australia/Sydney"
	cfg.DisplayName = "Sam"
	cfg.Feeds = []FeedConfig{{Name: "Holidays", URL: "https://example.com/h.ics"}}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Timezone, loaded.Timezone)
	assert.Equal(t, cfg.DisplayName, loaded.DisplayName)
	assert.Equal(t, cfg.Feeds, loaded.Feeds)
}
