package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration. Protocol constants (the anonymous
// window, the warning threshold) live in models; only deployment knobs are
// configurable here.
type Config struct {
	ServerPort     string        `envconfig:"PORT" default:"8080"`
	AWSRegion      string        `envconfig:"AWS_REGION" default:"us-east-1"`
	ExpoPushURL    string        `envconfig:"EXPO_PUSH_URL" default:"https://exp.host/--/api/v2/push/send"`
	SearchTimeout  time.Duration `envconfig:"SEARCH_TIMEOUT" default:"30s"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"10s"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// Load reads configuration from the environment, with .env as a fallback for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
