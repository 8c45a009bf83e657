package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	EnvPrefix = "DEALDESK_"
)

type ServerConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	BaseURL        string   `yaml:"base_url" env:"BASE_URL"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

type DatabaseConfig struct {
	Driver  string `yaml:"driver" env:"DRIVER"`
	DSN     string `yaml:"url" env:"URL"`
	Migrate bool   `yaml:"migrate" env:"MIGRATE"`
}

type ProviderConfig struct {
	Key    string   `yaml:"key" env:"KEY"`
	Secret string   `yaml:"secret" env:"SECRET"`
	Scopes []string `yaml:"scopes" env:"SCOPES"`
}

func (p ProviderConfig) Enabled() bool {
	return p.Key != "" && p.Secret != ""
}

// LocalAccount is a development sign-in. PasswordHash is a bcrypt hash, see
// the hash-password command.
type LocalAccount struct {
	Email        string `yaml:"email"`
	DisplayName  string `yaml:"display_name"`
	PasswordHash string `yaml:"password_hash"`
}

type AuthConfig struct {
	JWTSecret     string          `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL      time.Duration   `yaml:"token_ttl" env:"TOKEN_TTL"`
	SessionKeys   []string        `yaml:"session_keys" env:"SESSION_KEYS"`
	SessionMaxAge time.Duration   `yaml:"session_max_age" env:"SESSION_MAX_AGE"`
	CookieSecure  bool            `yaml:"cookie_secure" env:"COOKIE_SECURE"`
	Google        ProviderConfig  `yaml:"google" envPrefix:"GOOGLE_"`
	Github        ProviderConfig  `yaml:"github" envPrefix:"GITHUB_"`
	LocalAccounts []*LocalAccount `yaml:"local_accounts"`

	// set when JWTSecret was not configured and a random one is used
	GeneratedSecret bool `yaml:"-"`
}

type RealtimeConfig struct {
	IntentsPerSecond float64 `yaml:"intents_per_second" env:"INTENTS_PER_SECOND"`
	IntentBurst      int     `yaml:"intent_burst" env:"INTENT_BURST"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	FromEmail    string `yaml:"from_email" env:"FROM_EMAIL"`
}

func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.FromEmail != ""
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"BOT_TOKEN"`
	ChatID   int64  `yaml:"chat_id" env:"CHAT_ID"`
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

type ExportConfig struct {
	FontPath string `yaml:"font_path" env:"FONT_PATH"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Realtime RealtimeConfig `yaml:"realtime" envPrefix:"REALTIME_"`
	Email    EmailConfig    `yaml:"email" envPrefix:"EMAIL_"`
	Telegram TelegramConfig `yaml:"telegram" envPrefix:"TELEGRAM_"`
	Export   ExportConfig   `yaml:"export" envPrefix:"EXPORT_"`
}

// LoadConfig reads the YAML file at path, then applies DEALDESK_* variables
// on top. A missing file is not an error: defaults and environment are used.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, errors.Wrapf(err, "could not parse %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "could not open %s", path)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "could not parse environment")
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Database.Driver == "" {
		if c.Database.DSN != "" {
			c.Database.Driver = DriverPostgres
		} else {
			c.Database.Driver = DriverMemory
		}
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 15 * time.Minute
	}
	if c.Auth.SessionMaxAge == 0 {
		c.Auth.SessionMaxAge = 30 * 24 * time.Hour
	}
	if c.Auth.JWTSecret == "" {
		secret, err := randomHex(32)
		if err != nil {
			return err
		}
		c.Auth.JWTSecret = secret
		c.Auth.GeneratedSecret = true
	}
	if c.Realtime.IntentsPerSecond == 0 {
		c.Realtime.IntentsPerSecond = 5
	}
	if c.Realtime.IntentBurst == 0 {
		c.Realtime.IntentBurst = 10
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Realtime.IntentsPerSecond < 0 || c.Realtime.IntentBurst < 0 {
		return errors.New("realtime limits must not be negative")
	}
	for i, a := range c.Auth.LocalAccounts {
		if a == nil || a.Email == "" || a.PasswordHash == "" {
			return errors.Errorf("auth.local_accounts[%d]: email and password_hash are required", i)
		}
	}
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.WithStack(err)
	}
	return hex.EncodeToString(b), nil
}
