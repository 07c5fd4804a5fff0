// Package config loads settings from defaults, an optional YAML file and the
// environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hray3182/daymemory/internal/models"
)

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Timezone string         `koanf:"timezone"`
	Reminder ReminderConfig `koanf:"reminder"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	SMS      SMSConfig      `koanf:"sms"`
	Telegram TelegramConfig `koanf:"telegram"`
	AI       AIConfig       `koanf:"ai"`
	S3       S3Config       `koanf:"s3"`
}

type DatabaseConfig struct {
	URI string `koanf:"uri"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or text
}

type ReminderConfig struct {
	Interval       time.Duration `koanf:"interval"`
	ClaimTimeout   time.Duration `koanf:"claim_timeout"`
	NotifyTimeout  time.Duration `koanf:"notify_timeout"`
	Workers        int           `koanf:"workers"`
	AutoRetryLimit int           `koanf:"auto_retry_limit"`
	DefaultOffsets string        `koanf:"default_offsets"` // comma separated days
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type SMSConfig struct {
	Endpoint string `koanf:"endpoint"`
	APIKey   string `koanf:"api_key"`
	Sender   string `koanf:"sender"`
}

type TelegramConfig struct {
	Token string `koanf:"token"`
}

type AIConfig struct {
	Provider string        `koanf:"provider"`
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout"`
}

type S3Config struct {
	Region        string        `koanf:"region"`
	AccessKey     string        `koanf:"access_key"`
	SecretKey     string        `koanf:"secret_key"`
	Endpoint      string        `koanf:"endpoint"`
	Bucket        string        `koanf:"bucket"`
	PresignExpiry time.Duration `koanf:"presign_expiry"`
}

// Load reads .env when present, then the YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile layers defaults, the YAML file at path (skipped when empty or
// missing) and the environment.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks what the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(append(errs, c.ValidateReminders())...)
}

// ValidateReminders checks the settings the reminder pipeline needs. It is
// all cmd/remind requires.
func (c *Config) ValidateReminders() error {
	var errs []error
	if c.Database.URI == "" {
		errs = append(errs, errors.New("DATABASE_URI is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DefaultOffsets(); err != nil {
		errs = append(errs, err)
	}
	if c.Reminder.Interval <= 0 {
		errs = append(errs, errors.New("SCHEDULER_INTERVAL must be positive"))
	}
	if c.Reminder.AutoRetryLimit < 0 {
		errs = append(errs, errors.New("AUTO_RETRY_LIMIT must not be negative"))
	}
	// A send still running when its claim goes stale can be delivered twice.
	if c.Reminder.NotifyTimeout <= 0 || c.Reminder.NotifyTimeout >= c.Reminder.ClaimTimeout {
		errs = append(errs, errors.New("NOTIFY_TIMEOUT must be positive and shorter than CLAIM_TIMEOUT"))
	}
	return errors.Join(errs...)
}

// Location resolves the timezone used to decide "today".
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultOffsets parses the reminder offsets given to users without
// settings. An empty value yields the built-in defaults.
func (c *Config) DefaultOffsets() (models.Offsets, error) {
	raw := strings.TrimSpace(c.Reminder.DefaultOffsets)
	if raw == "" {
		return models.DefaultOffsets(), nil
	}

	var out models.Offsets
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_OFFSETS %q", raw)
		}
		out = append(out, n)
	}
	if err := out.Validate(365); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_OFFSETS: %w", err)
	}
	return out, nil
}

func (c *Config) SMTPEnabled() bool     { return c.SMTP.Host != "" }
func (c *Config) SMSEnabled() bool      { return c.SMS.Endpoint != "" }
func (c *Config) TelegramEnabled() bool { return c.Telegram.Token != "" }
func (c *Config) AIEnabled() bool       { return c.AI.APIKey != "" }
func (c *Config) S3Enabled() bool       { return c.S3.Bucket != "" }
