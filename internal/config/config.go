package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	HubAPIURL     string        `env:"HUB_API_URL" envDefault:"http://localhost:8000"`
	HubAPITimeout time.Duration `env:"HUB_API_TIMEOUT" envDefault:"10s"`

	JWTSecret string `env:"JWT_SECRET"`

	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	ModerationModel   string        `env:"MODERATION_MODEL" envDefault:"omni-moderation-latest"`
	ModerationTimeout time.Duration `env:"MODERATION_TIMEOUT" envDefault:"10s"`
	ModerationEnforce bool          `env:"MODERATION_ENFORCE" envDefault:"false"`

	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom        string `env:"TWILIO_FROM"`
	ModerationAlertTo string `env:"MODERATION_ALERT_TO"`

	MinStake int `env:"MIN_STAKE" envDefault:"10"`

	CORSOrigins    []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	ViewIdleTTL    time.Duration `env:"VIEW_IDLE_TTL" envDefault:"30m"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load reads .env from the working directory if present, then parses the
// environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not read .env: %v", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MinStake <= 0 {
		return Config{}, fmt.Errorf("MIN_STAKE must be positive, got %d", cfg.MinStake)
	}
	return cfg, nil
}

// RequireSecret fails when no JWT secret is configured; serving or issuing
// tokens without one is never allowed.
func (c Config) RequireSecret() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}
