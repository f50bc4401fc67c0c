package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.UploadDir)
	assert.Equal(t, "json", cfg.CalendarBackend)
	assert.Equal(t, "noop", cfg.NotifyBackend)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 30*time.Second, cfg.NotifyTimeout)
	assert.True(t, cfg.EnableCalendar)
	assert.NoError(t, cfg.Validate())
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("UPLOAD_DIR", "/srv/uploads")
	t.Setenv("CALENDAR_BACKEND", "sqlite")
	t.Setenv("ENABLE_NOTIFY", "false")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("NOTIFY_TIMEOUT", "5s")
	t.Setenv("MAX_UPLOAD_MB", "10")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/srv/uploads", cfg.UploadDir)
	assert.Equal(t, "sqlite", cfg.CalendarBackend)
	assert.False(t, cfg.EnableNotify)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("ENABLE_CALENDAR", "maybe")
	t.Setenv("NOTIFY_TIMEOUT", "forever")

	cfg := Load()

	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.EnableCalendar)
	assert.Equal(t, 30*time.Second, cfg.NotifyTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown calendar backend", func(c *Config) { c.CalendarBackend = "csv" }, true},
		{"smtp without host", func(c *Config) { c.NotifyBackend = "smtp"; c.MailFrom = "a@example.edu" }, true},
		{"smtp complete", func(c *Config) {
			c.NotifyBackend = "smtp"
			c.SMTPHost = "smtp.example.edu"
			c.MailFrom = "a@example.edu"
		}, false},
		{"resend without key", func(c *Config) { c.NotifyBackend = "resend"; c.MailFrom = "a@example.edu" }, true},
		{"unknown backend ignored when disabled", func(c *Config) { c.EnableNotify = false; c.NotifyBackend = "pigeon" }, false},
		{"short csrf key", func(c *Config) { c.CSRFKey = "short" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EXAMPORTAL_TEST_DOTENV=from-file\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("EXAMPORTAL_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("EXAMPORTAL_TEST_DOTENV"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LISTEN_ADDR=:1234\n"), 0600))
	t.Setenv("LISTEN_ADDR", ":9000")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, ":9000", Load().ListenAddr)
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
