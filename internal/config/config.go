package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	UploadDir       string
	CalendarBackend string
	CalendarFile    string
	DBPath          string
	AuthFile        string
	EnableCalendar  bool
	EnableNotify    bool
	NotifyBackend   string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string
	ResendAPIKey    string
	NotifyTimeout   time.Duration
	MaxUploadMB     int64
	CSRFKey         string
	SecureCookies   bool
	LogLevel        string
	LogFile         string
}

// LoadDotEnv loads path into the environment if it exists. Variables that
// are already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Load() *Config {
	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		UploadDir:       getEnv("UPLOAD_DIR", "data/uploads"),
		CalendarBackend: getEnv("CALENDAR_BACKEND", "json"),
		CalendarFile:    getEnv("CALENDAR_FILE", "data/academiccalendar/academic_calendar.json"),
		DBPath:          getEnv("DB_PATH", "data/examportal.db"),
		AuthFile:        getEnv("AUTH_FILE", "auth.secret"),
		EnableCalendar:  getEnvBool("ENABLE_CALENDAR", true),
		EnableNotify:    getEnvBool("ENABLE_NOTIFY", true),
		NotifyBackend:   getEnv("NOTIFY_BACKEND", "noop"),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvInt("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		MailFrom:        getEnv("MAIL_FROM", ""),
		ResendAPIKey:    getEnv("RESEND_API_KEY", ""),
		NotifyTimeout:   getEnvDuration("NOTIFY_TIMEOUT", 30*time.Second),
		MaxUploadMB:     int64(getEnvInt("MAX_UPLOAD_MB", 25)),
		CSRFKey:         getEnv("CSRF_KEY", ""),
		SecureCookies:   getEnvBool("SECURE_COOKIES", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}
}

// Validate reports combinations that cannot be served.
func (c *Config) Validate() error {
	switch c.CalendarBackend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown CALENDAR_BACKEND %q (want json or sqlite)", c.CalendarBackend)
	}

	if c.EnableNotify {
		switch c.NotifyBackend {
		case "noop":
		case "smtp":
			if c.SMTPHost == "" || c.MailFrom == "" {
				return errors.New("NOTIFY_BACKEND=smtp requires SMTP_HOST and MAIL_FROM")
			}
		case "resend":
			if c.ResendAPIKey == "" || c.MailFrom == "" {
				return errors.New("NOTIFY_BACKEND=resend requires RESEND_API_KEY and MAIL_FROM")
			}
		default:
			return fmt.Errorf("unknown NOTIFY_BACKEND %q (want smtp, resend or noop)", c.NotifyBackend)
		}
	}

	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return errors.New("CSRF_KEY must be exactly 32 bytes")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return d
}
