package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := LoadConfig("")
	req.NoError(err)

	req.Equal("info", cfg.LogLevel)
	req.Equal(8080, cfg.Server.AppPort)
	req.Equal(8081, cfg.Server.SocketPort)
	req.Equal("ws", cfg.Server.SocketRoute)
	req.Equal(30*time.Second, cfg.Server.ShutdownGracePeriod)
	req.Equal(DriverMongo, cfg.Store.Driver)
	req.Equal("chat_messages", cfg.ChatDatabase.MessagesCollection)
	req.Equal(5*time.Minute, cfg.Chat.PresenceTTL)
	req.Equal(365, cfg.Chat.RetentionDays)
	req.Equal(24*time.Hour, cfg.Chat.SweepInterval)
	req.Equal(365*24*time.Hour, cfg.RetentionWindow())

	// no secret configured
	req.Error(cfg.Validate())
}

func TestLoadConfigWithFileAndEnvOverride(t *testing.T) {
	req := require.New(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	req.NoError(os.WriteFile(configPath, []byte(`
log_level: debug
server:
  app_port: 9000
  shutdown_grace_period: 5s
store:
  driver: badger
  badger_path: /tmp/chat
auth:
  secret_key: file-secret
chat:
  retention_days: 30
  presence_ttl: 90s
`), 0o644))

	t.Setenv("PHOTOCHAT_SERVER_APP_PORT", "9100")
	t.Setenv("PHOTOCHAT_AUTH_SECRET_KEY", "env-secret")

	cfg, err := LoadConfig(configPath)
	req.NoError(err)

	req.Equal("debug", cfg.LogLevel)
	req.Equal(9100, cfg.Server.AppPort)
	req.Equal(5*time.Second, cfg.Server.ShutdownGracePeriod)
	req.Equal(DriverBadger, cfg.Store.Driver)
	req.Equal("/tmp/chat", cfg.Store.BadgerPath)
	req.Equal("env-secret", cfg.Auth.SecretKey)
	req.Equal(30, cfg.Chat.RetentionDays)
	req.Equal(90*time.Second, cfg.Chat.PresenceTTL)
	req.NoError(cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		cfg.Auth.SecretKey = "secret"
		return cfg
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Store.Driver = "sqlite"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Chat.RetentionDays = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Store.Driver = DriverBadger
	cfg.Store.BadgerPath = ""
	require.Error(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
