package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string
	Addr          string
	PublicURL     *url.URL // front end base for mailed links
	DBDSN         string
	AutoMigrate   bool
	CookieSecret  string
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	ResetTokenTTL time.Duration
	LogLevel      string

	SMTP SMTPConfig

	GoogleClientID string
	AppleServiceID string

	AdminBootstrapEmail    string
	AdminBootstrapName     string
	AdminBootstrapPassword string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string
	FromEmail string
	FromName  string
}

// Enabled reports whether outgoing mail can be delivered.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}

// Load reads an optional dotenv file (APP_ENV_FILE, default .env) and then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	path := os.Getenv("APP_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnvFile(path, os.Setenv, os.Getenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:            getenv("APP_ENV"),
		Addr:           getenv("APP_ADDR"),
		DBDSN:          getenv("APP_DB_DSN"),
		LogLevel:       getenv("APP_LOG_LEVEL"),
		CookieSecret:   getenv("APP_COOKIE_SECRET"),
		GoogleClientID: strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		AppleServiceID: strings.TrimSpace(getenv("APP_APPLE_SERVICE_ID")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	if cfg.SessionTTL, err = parseTTL(getenv, "APP_SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RememberTTL, err = parseTTL(getenv, "APP_REMEMBER_TTL", 10*365*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ResetTokenTTL, err = parseTTL(getenv, "APP_RESET_TOKEN_TTL", 2*time.Hour); err != nil {
		return Config{}, err
	}

	if raw := strings.TrimSpace(getenv("APP_AUTO_MIGRATE")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_AUTO_MIGRATE: %w", err)
		}
		cfg.AutoMigrate = v
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	if cfg.SMTP, err = loadSMTP(getenv); err != nil {
		return Config{}, err
	}

	cfg.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_ADMIN_BOOTSTRAP_EMAIL")))
	cfg.AdminBootstrapName = strings.TrimSpace(getenv("APP_ADMIN_BOOTSTRAP_NAME"))
	cfg.AdminBootstrapPassword = getenv("APP_ADMIN_BOOTSTRAP_PASSWORD")

	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapEmail == "" {
		return Config{}, errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapName == "" {
		cfg.AdminBootstrapName = "admin"
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func loadSMTP(getenv func(string) string) (SMTPConfig, error) {
	c := SMTPConfig{
		Host:      strings.TrimSpace(getenv("APP_SMTP_HOST")),
		Username:  getenv("APP_SMTP_USERNAME"),
		Password:  getenv("APP_SMTP_PASSWORD"),
		TLSMode:   strings.ToLower(strings.TrimSpace(getenv("APP_SMTP_TLS_MODE"))),
		FromEmail: strings.TrimSpace(getenv("APP_SMTP_FROM_EMAIL")),
		FromName:  strings.TrimSpace(getenv("APP_SMTP_FROM_NAME")),
		Port:      587,
	}
	if raw := strings.TrimSpace(getenv("APP_SMTP_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return SMTPConfig{}, errors.New("APP_SMTP_PORT: must be a valid port")
		}
		c.Port = port
	}
	switch c.TLSMode {
	case "":
		c.TLSMode = "starttls"
	case "starttls", "tls", "none":
	default:
		return SMTPConfig{}, errors.New("APP_SMTP_TLS_MODE: must be one of starttls, tls, none")
	}
	return c, nil
}

func parseTTL(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return ttl, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}
