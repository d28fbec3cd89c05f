package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "https://www.ignou.ac.in/announcements/0?nav=6", cfg.Source.URL)
	require.Equal(t, 10*time.Second, cfg.SourceTimeout())
	require.Equal(t, 3, cfg.Mail.MaxAttempts)
	require.Equal(t, "0 9 * * *", cfg.Cron.Spec)
	require.Equal(t, "Asia/Kolkata", cfg.Cron.Timezone)
	require.True(t, cfg.Cron.Enabled)
	require.Equal(t, 5*time.Minute, cfg.RunTimeout())
	require.Equal(t, "snapshots", cfg.Snapshot.Prefix)
	require.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
source:
  url: https://staging.example.org/announcements
cron:
  enabled: false
mail:
  admin_email: admin@example.org
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://staging.example.org/announcements", cfg.Source.URL)
	require.False(t, cfg.Cron.Enabled)
	require.Equal(t, "admin@example.org", cfg.Mail.AdminEmail)
	// Untouched keys keep their defaults.
	require.Equal(t, "0 9 * * *", cfg.Cron.Spec)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Source: SourceConfig{URL: "https://example.org", TimeoutSeconds: 10},
			Mail:   MailConfig{MaxAttempts: 3},
			Cron:   CronConfig{RunTimeoutSeconds: 300},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Server.Port = 0
	require.ErrorContains(t, cfg.Validate(), "server.port")

	cfg = valid()
	cfg.Source.URL = ""
	require.ErrorContains(t, cfg.Validate(), "source.url")

	cfg = valid()
	cfg.Mail.MaxAttempts = 0
	require.ErrorContains(t, cfg.Validate(), "mail.max_attempts")

	cfg = valid()
	cfg.SMTP.Host = "smtp.example.org"
	require.ErrorContains(t, cfg.Validate(), "smtp.username")

	cfg = valid()
	cfg.SMTP = SMTPConfig{Host: "smtp.example.org", Username: "u", Password: "p"}
	require.ErrorContains(t, cfg.Validate(), "smtp.from")

	cfg = valid()
	cfg.Snapshot = SnapshotConfig{Dir: "/tmp/snaps", GCSBucket: "bucket"}
	require.ErrorContains(t, cfg.Validate(), "mutually exclusive")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("NOTIFIER_SERVER_PORT", "9999")
	t.Setenv("NOTIFIER_CRON_TIMEZONE", "UTC")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "UTC", cfg.Cron.Timezone)
}
