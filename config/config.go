// config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full environment surface of the process.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName  string `env:"MONGO_DB" envDefault:"assetverse"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`

	// Base64-encoded service-account JSON for the identity provider.
	IdentityCredentials string `env:"IDENTITY_CREDENTIALS_B64,required"`

	PaymentAPIURL        string `env:"PAYMENT_API_URL" envDefault:"https://api.stripe.com/v1"`
	PaymentSecretKey     string `env:"PAYMENT_SECRET_KEY,required"`
	PaymentWebhookSecret string `env:"PAYMENT_WEBHOOK_SECRET,required"`
	CheckoutSuccessURL   string `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:5173/payment-success"`
	CheckoutCancelURL    string `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:5173/purchase"`

	// Optional: lifecycle events are published to Kafka when brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"assetverse.lifecycle"`
}

// Load reads .env (when present) and parses the environment.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
