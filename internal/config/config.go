package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Kindle   KindleConfig   `yaml:"kindle"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Session  SessionConfig  `yaml:"session"`
	LogLevel string         `yaml:"log_level"`
}

type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	AllowedUserID int64  `yaml:"allowed_user_id"`
	WebhookURL    string `yaml:"webhook_url"`
	ListenAddr    string `yaml:"listen_addr"`
}

type KindleConfig struct {
	Address string `yaml:"address"`
}

type SMTPConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SessionConfig struct {
	IdleTimeout  Duration `yaml:"idle_timeout"`
	PollInterval Duration `yaml:"poll_interval"`
}

// Duration is a time.Duration that unmarshals from values like "30s" or "2h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables in the YAML
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.AllowedUserID == 0 {
		return fmt.Errorf("telegram.allowed_user_id is required")
	}
	if c.Kindle.Address == "" {
		return fmt.Errorf("kindle.address is required")
	}
	if c.SMTP.Username == "" {
		return fmt.Errorf("smtp.username is required")
	}
	if c.SMTP.Password == "" {
		return fmt.Errorf("smtp.password is required")
	}

	// Apply defaults
	if c.Telegram.ListenAddr == "" {
		c.Telegram.ListenAddr = ":10000"
	}
	if c.SMTP.Address == "" {
		c.SMTP.Address = "smtp.gmail.com:465"
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = Duration(2 * time.Hour)
	}
	if c.Session.PollInterval == 0 {
		c.Session.PollInterval = Duration(30 * time.Second)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return nil
}
