package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	DBDSN          string `envconfig:"DB_DSN" required:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	PaymentBaseURL   string `envconfig:"PAYMENT_BASE_URL" required:"true"`
	PaymentSecretKey string `envconfig:"PAYMENT_SECRET_KEY" required:"true"`

	HandoffTTLMinutes int `envconfig:"HANDOFF_TTL_MINUTES" default:"15"`
}

func Load() (*Config, error) {
	// .env is optional; deployments set real environment variables.
	if err := godotenv.Load(".env"); err == nil {
		log.Println("loaded configuration from .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return &cfg, nil
}
