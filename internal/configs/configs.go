/*
Package configs loads the application's configuration settings.

Values come from environment variables, optionally layered over a config file named
by CONFIG_FILE (any format viper understands). Environment variables always win.
*/
package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultEnvironment     = "development"
	defaultPort            = 3000
	defaultMaxMessageBytes = 5000
	defaultMaxAvatarBytes  = 256 << 10
	defaultConnectRate     = 1.0
	defaultConnectBurst    = 10
	defaultEventRate       = 20.0
	defaultEventBurst      = 40
	defaultShutdownTimeout = 5 * time.Second
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment     string
	Port            int
	StaticDir       string
	ShutdownTimeout time.Duration

	// Security Settings
	AllowedOrigins []string
	ConnectRate    float64
	ConnectBurst   int
	EventRate      float64
	EventBurst     int

	// Chat Settings
	MaxMessageBytes           int
	MaxAvatarBytes            int
	HistoryRequiresFriendship bool
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == defaultEnvironment
}

// LoadConfig reads, defaults and validates the configuration.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("environment", defaultEnvironment)
	v.SetDefault("port", defaultPort)
	v.SetDefault("static_dir", "")
	v.SetDefault("shutdown_timeout", defaultShutdownTimeout.String())
	v.SetDefault("allowed_origins", "")
	v.SetDefault("connect_rate", defaultConnectRate)
	v.SetDefault("connect_burst", defaultConnectBurst)
	v.SetDefault("event_rate", defaultEventRate)
	v.SetDefault("event_burst", defaultEventBurst)
	v.SetDefault("max_message_bytes", defaultMaxMessageBytes)
	v.SetDefault("max_avatar_bytes", defaultMaxAvatarBytes)
	v.SetDefault("history_requires_friendship", true)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{
		Environment:               v.GetString("environment"),
		Port:                      v.GetInt("port"),
		StaticDir:                 v.GetString("static_dir"),
		ShutdownTimeout:           v.GetDuration("shutdown_timeout"),
		AllowedOrigins:            splitList(v.GetString("allowed_origins")),
		ConnectRate:               v.GetFloat64("connect_rate"),
		ConnectBurst:              v.GetInt("connect_burst"),
		EventRate:                 v.GetFloat64("event_rate"),
		EventBurst:                v.GetInt("event_burst"),
		MaxMessageBytes:           v.GetInt("max_message_bytes"),
		MaxAvatarBytes:            v.GetInt("max_avatar_bytes"),
		HistoryRequiresFriendship: v.GetBool("history_requires_friendship"),
	}

	if cfg.Environment == "" {
		cfg.Environment = defaultEnvironment
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT %s: must be positive", c.ShutdownTimeout)
	}
	if c.ConnectRate <= 0 || c.ConnectBurst <= 0 {
		return fmt.Errorf("invalid connection limit: rate %.2f burst %d", c.ConnectRate, c.ConnectBurst)
	}
	if c.EventRate <= 0 || c.EventBurst <= 0 {
		return fmt.Errorf("invalid event limit: rate %.2f burst %d", c.EventRate, c.EventBurst)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("invalid MAX_MESSAGE_BYTES %d: must be positive", c.MaxMessageBytes)
	}
	if c.MaxAvatarBytes <= 0 {
		return fmt.Errorf("invalid MAX_AVATAR_BYTES %d: must be positive", c.MaxAvatarBytes)
	}
	return nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
