package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Auth         AuthConfig         `mapstructure:"auth"`
	Graph        GraphConfig        `mapstructure:"graph"`
	Poll         PollConfig         `mapstructure:"poll"`
	Notification NotificationConfig `mapstructure:"notification"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type AuthConfig struct {
	TokenEndpoint    string `mapstructure:"token_endpoint"`
	ClientID         string `mapstructure:"client_id"`
	RedirectURI      string `mapstructure:"redirect_uri"`
	Scope            string `mapstructure:"scope"`
	GrantType        string `mapstructure:"grant_type"`
	RefreshToken     string `mapstructure:"refresh_token"`
	ClientInfo       string `mapstructure:"client_info"`
	Claims           string `mapstructure:"claims"`
	AnchorMailbox    string `mapstructure:"anchor_mailbox"`
	Origin           string `mapstructure:"origin"`
	ClientSKU        string `mapstructure:"client_sku"`
	ClientVersion    string `mapstructure:"client_version"`
	LibCapability    string `mapstructure:"lib_capability"`
	CurrentTelemetry string `mapstructure:"current_telemetry"`
	LastTelemetry    string `mapstructure:"last_telemetry"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
}

type GraphConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RetryAttempts  int    `mapstructure:"retry_attempts"`
}

type PollConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
	LookbackMinutes int `mapstructure:"lookback_minutes"`
	MessagePageSize int `mapstructure:"message_page_size"`
}

type NotificationConfig struct {
	SoundPath       string   `mapstructure:"sound_path"`
	PlayerCommand   []string `mapstructure:"player_command"`
	PlayerTimeoutMS int      `mapstructure:"player_timeout_ms"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c PollConfig) Lookback() time.Duration {
	return time.Duration(c.LookbackMinutes) * time.Minute
}

func (c NotificationConfig) PlayerTimeout() time.Duration {
	return time.Duration(c.PlayerTimeoutMS) * time.Millisecond
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("auth.token_endpoint", "https://login.microsoftonline.com")
	v.SetDefault("auth.grant_type", "refresh_token")
	v.SetDefault("auth.redirect_uri", "https://login.microsoftonline.com/common/oauth2/nativeclient")
	v.SetDefault("auth.scope", "openid profile offline_access Chat.Read Calendars.Read")
	v.SetDefault("auth.timeout_seconds", 30)
	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("graph.timeout_seconds", 30)
	v.SetDefault("graph.retry_attempts", 3)
	v.SetDefault("poll.interval_minutes", 1)
	v.SetDefault("poll.lookback_minutes", 5)
	v.SetDefault("poll.message_page_size", 20)
	v.SetDefault("notification.player_command", []string{"mpg123", "-q"})
	v.SetDefault("notification.player_timeout_ms", 2000)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9090")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Secrets are usually supplied through the environment
	if token := v.GetString("REFRESH_TOKEN"); token != "" {
		config.Auth.RefreshToken = token
	}

	if clientID := v.GetString("CLIENT_ID"); clientID != "" {
		config.Auth.ClientID = clientID
	}

	if config.Auth.ClientID == "" {
		return nil, fmt.Errorf("auth.client_id is required")
	}
	if config.Auth.RefreshToken == "" {
		return nil, fmt.Errorf("auth.refresh_token is required")
	}

	return &config, nil
}
