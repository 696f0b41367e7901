package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            26950,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Liveness: LivenessConfig{
			Enabled:           true,
			ConnectionTimeout: 15 * time.Second,
			HeartbeatInterval: 5 * time.Second,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:26950", cfg.Server.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 26951
logging:
  level: debug
  format: console
liveness:
  enabled: true
  connection_timeout: 20s
  heartbeat_interval: 4s
game:
  settings_path: configs/settings.yaml
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 26951, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 20*time.Second, cfg.Liveness.ConnectionTimeout)
	assert.Equal(t, "configs/settings.yaml", cfg.Game.SettingsPath)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Liveness.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Liveness.ConnectionTimeout)
	assert.Equal(t, 5*time.Second, cfg.Liveness.HeartbeatInterval)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateHostEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Host = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateLivenessDisabledSkipsTimings(t *testing.T) {
	cfg := validConfig()
	cfg.Liveness = LivenessConfig{Enabled: false}
	assert.NoError(t, cfg.Validate())
}

func TestValidateLivenessHeartbeatTooLong(t *testing.T) {
	cfg := validConfig()
	cfg.Liveness.HeartbeatInterval = cfg.Liveness.ConnectionTimeout
	require.Error(t, cfg.Validate())
	assert.Contains(t, cfg.Validate().Error(), "heartbeat_interval must be shorter")
}

func TestValidatePortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := validConfig()
		cfg.Server.Port = rapid.IntRange(1, 65535).Draw(t, "port")
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidatePortOutOfRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := validConfig()
		cfg.Server.Port = rapid.OneOf(
			rapid.IntRange(-1000, 0),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		assert.Error(t, cfg.Validate())
	})
}
