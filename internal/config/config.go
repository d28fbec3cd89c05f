// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Source   SourceConfig   `mapstructure:"source"`
	DB       DBConfig       `mapstructure:"db"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Mail     MailConfig     `mapstructure:"mail"`
	Cron     CronConfig     `mapstructure:"cron"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features. Development mode also
// exposes error detail in API payloads.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SourceConfig identifies the scraped page.
type SourceConfig struct {
	URL            string `mapstructure:"url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores (development only).
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// SMTPConfig holds the mail transport credentials. An empty host selects
// the log-only sender.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	ReplyTo  string `mapstructure:"reply_to"`
}

// MailConfig governs notification behavior.
type MailConfig struct {
	AdminEmail  string `mapstructure:"admin_email"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// CronConfig governs the scheduled run.
type CronConfig struct {
	Spec              string `mapstructure:"spec"`
	Timezone          string `mapstructure:"timezone"`
	Enabled           bool   `mapstructure:"enabled"`
	RunTimeoutSeconds int    `mapstructure:"run_timeout_seconds"`
}

// SnapshotConfig controls raw page archival.
type SnapshotConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for new-announcement event publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("source.url", "https://www.ignou.ac.in/announcements/0?nav=6")
	v.SetDefault("source.timeout_seconds", 10)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "IGNOU Notifications")
	v.SetDefault("mail.max_attempts", 3)
	v.SetDefault("cron.spec", "0 9 * * *")
	v.SetDefault("cron.timezone", "Asia/Kolkata")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.run_timeout_seconds", 300)
	v.SetDefault("snapshot.prefix", "snapshots")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Mail.MaxAttempts <= 0 {
		return fmt.Errorf("mail.max_attempts must be > 0")
	}
	if c.Cron.RunTimeoutSeconds <= 0 {
		return fmt.Errorf("cron.run_timeout_seconds must be > 0")
	}
	if c.SMTP.Host != "" {
		if c.SMTP.Username == "" || c.SMTP.Password == "" {
			return fmt.Errorf("smtp.username and smtp.password must be set when smtp.host is configured")
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("smtp.from must be set when smtp.host is configured")
		}
	}
	if c.Snapshot.Dir != "" && c.Snapshot.GCSBucket != "" {
		return fmt.Errorf("snapshot.dir and snapshot.gcs_bucket are mutually exclusive")
	}
	return nil
}

// SourceTimeout converts the fetch timeout config into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// RunTimeout converts the run timeout config into a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Cron.RunTimeoutSeconds) * time.Second
}
