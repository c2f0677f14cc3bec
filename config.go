package secretpages

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters. Env names match the
// original deployment (SECRETS_DB, GOOGLE_CALLBACK, FACEBOOK_APP_ID...).
type Config struct {
	Port          string `env:"PORT" envDefault:"3000"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"devsecret"`

	// StoreBackend selects the user store: mongo, postgres or memory.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mongo"`
	MongoURI     string `env:"SECRETS_DB" envDefault:"mongodb://localhost:27017/secrets"`
	PostgresDSN  string `env:"POSTGRES_DSN"`

	// RedisAddr, when set, keeps session data in redis instead of in
	// process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallback     string `env:"GOOGLE_CALLBACK"`

	FacebookAppID     string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"FACEBOOK_APP_SECRET"`
	FacebookCallback  string `env:"FACEBOOK_CALLBACK"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
