package notifsync

import (
	"time"

	"github.com/dmitrymomot/notifsync/pkg/config"
)

// Config holds the engine's connection settings. All fields can be
// populated from the environment via LoadConfig, or filled in directly.
type Config struct {
	// APIBaseURL is the REST endpoint root, e.g. "https://api.example.com/api".
	APIBaseURL string `env:"NOTIFY_API_BASE_URL,required"`
	// SocketURL is the realtime websocket endpoint, e.g. "wss://api.example.com/ws".
	SocketURL string `env:"NOTIFY_SOCKET_URL,required"`

	HTTPTimeout       time.Duration `env:"NOTIFY_HTTP_TIMEOUT" envDefault:"10s"`
	ReconnectAttempts int           `env:"NOTIFY_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectInitial  time.Duration `env:"NOTIFY_RECONNECT_DELAY" envDefault:"1s"`
	ReconnectMax      time.Duration `env:"NOTIFY_RECONNECT_MAX_DELAY" envDefault:"30s"`
	ToastTTL          time.Duration `env:"NOTIFY_TOAST_TTL" envDefault:"5s"`
	Room              string        `env:"NOTIFY_ROOM" envDefault:"notifications"`
}

// LoadConfig reads the engine configuration from environment variables,
// loading a .env file first if one exists.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
