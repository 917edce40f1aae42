package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification delivery modes.
const (
	NotifyInline = "inline"
	NotifyQueue  = "queue"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the process configuration, read once at bootstrap.
type Config struct {
	Port   string
	AppURL string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	SlackToken         string
	SlackChannel       string
	SlackSigningSecret string
	SlackAPIURL        string

	HourlyRate      float64
	PlatformFeeRate float64

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	DashboardUser         string
	DashboardPasswordHash string

	NotifyMode    string
	NotifyTimeout time.Duration
	RedisAddr     string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	MailReplyTo  string

	LogLevel  string
	LogFormat string
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Port:                  getenv("PORT", "8080"),
		AppURL:                strings.TrimRight(getenv("APP_URL", "http://localhost:3000"), "/"),
		StoreDriver:           getenv("STORE_DRIVER", DriverPostgres),
		DatabaseURL:           databaseURL(),
		SQLitePath:            getenv("SQLITE_PATH", "brandwacht.db"),
		SlackToken:            os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:          getenv("SLACK_CHANNEL", "#aanvragen"),
		SlackSigningSecret:    os.Getenv("SLACK_SIGNING_SECRET"),
		SlackAPIURL:           strings.TrimRight(getenv("SLACK_API_URL", "https://slack.com/api"), "/"),
		SessionSecret:         os.Getenv("SESSION_SECRET"),
		DashboardUser:         getenv("DASHBOARD_USER", "ops"),
		DashboardPasswordHash: os.Getenv("DASHBOARD_PASSWORD_HASH"),
		NotifyMode:            getenv("NOTIFY_MODE", NotifyInline),
		RedisAddr:             redisAddr(),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              getenv("SMTP_PORT", "465"),
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:              os.Getenv("SMTP_FROM"),
		MailReplyTo:           os.Getenv("MAIL_REPLY_TO"),
		LogLevel:              getenv("LOG_LEVEL", "info"),
		LogFormat:             getenv("LOG_FORMAT", "json"),
	}

	cfg.HourlyRate = parseFloat("HOURLY_RATE", 49.50, &errs)
	cfg.PlatformFeeRate = parseFloat("PLATFORM_FEE_RATE", 15, &errs)
	cfg.SessionTTL = parseDuration("SESSION_TTL", 30*time.Minute, &errs)
	cfg.NotifyTimeout = parseDuration("NOTIFY_TIMEOUT", 10*time.Second, &errs)
	cfg.CookieSecure = parseBool("COOKIE_SECURE", strings.HasPrefix(cfg.AppURL, "https://"), &errs)

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.SlackSigningSecret == "" {
		errs = append(errs, errors.New("SLACK_SIGNING_SECRET is required"))
	}
	if c.HourlyRate <= 0 {
		errs = append(errs, fmt.Errorf("HOURLY_RATE must be positive, got %v", c.HourlyRate))
	}
	if c.PlatformFeeRate < 0 || c.PlatformFeeRate > 100 {
		errs = append(errs, fmt.Errorf("PLATFORM_FEE_RATE must be between 0 and 100, got %v", c.PlatformFeeRate))
	}
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.StoreDriver))
	}
	switch c.NotifyMode {
	case NotifyInline, NotifyQueue:
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_MODE must be %q or %q, got %q", NotifyInline, NotifyQueue, c.NotifyMode))
	}
	if _, err := url.Parse(c.AppURL); err != nil {
		errs = append(errs, fmt.Errorf("APP_URL: %w", err))
	}
	return errors.Join(errs...)
}

// databaseURL prefers DATABASE_URL and falls back to the DB_* pieces.
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		getenv("DB_HOST", "localhost"),
		getenv("DB_PORT", "5432"),
		os.Getenv("DB_NAME"),
	)
}

// redisAddr resolves REDIS_ADDR, then REDIS_HOST/REDIS_PORT, then the compose service name.
func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		return host + ":" + getenv("REDIS_PORT", "6379")
	}
	if os.Getenv("RUN_LOCAL") == "true" {
		return "127.0.0.1:6379"
	}
	return "redis:6379"
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseFloat(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func parseDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func parseBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
