package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  client_id: client-1
  refresh_token: rt-1
notification:
  sound_path: /opt/sounds/ding.mp3
`)

	cfg, err := LoadConfig(path)

	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Auth.GrantType, "refresh_token")
	assert.Equal(t, cfg.Auth.TokenEndpoint, "https://login.microsoftonline.com")
	assert.Equal(t, cfg.Graph.BaseURL, "https://graph.microsoft.com/v1.0")
	assert.Equal(t, cfg.Graph.RetryAttempts, 3)
	assert.Equal(t, cfg.Poll.LookbackMinutes, 5)
	assert.Equal(t, cfg.Poll.MessagePageSize, 20)
	assert.Equal(t, cfg.Notification.PlayerTimeoutMS, 2000)
	assert.Equal(t, cfg.Notification.SoundPath, "/opt/sounds/ding.mp3")
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  client_id: client-1
  refresh_token: rt-1
poll:
  interval_minutes: 2
  lookback_minutes: 10
  message_page_size: 50
`)

	cfg, err := LoadConfig(path)

	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Poll.IntervalMinutes, 2)
	assert.Equal(t, cfg.Poll.LookbackMinutes, 10)
	assert.Equal(t, cfg.Poll.MessagePageSize, 50)
}

func TestLoadConfigRequiresClientID(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  refresh_token: rt-1
`)

	_, err := LoadConfig(path)

	assert.NotEqual(t, err, nil)
}

func TestLoadConfigRequiresRefreshToken(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  client_id: client-1
`)

	_, err := LoadConfig(path)

	assert.NotEqual(t, err, nil)
}
