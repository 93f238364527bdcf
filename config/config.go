package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendBadger = "badger"
	BackendDynamo = "dynamo"
)

// Config is the server configuration read from the environment.
type Config struct {
	Port               string        `env:"PORT"                 envDefault:"8080"`
	LogLevel           string        `env:"LOG_LEVEL"            envDefault:"INFO"`
	StoreBackend       string        `env:"STORE_BACKEND"        envDefault:"badger"`
	BadgerPath         string        `env:"BADGER_PATH"          envDefault:"./data/murmur"`
	AWSRegion          string        `env:"AWS_REGION"           envDefault:"ap-south-1"`
	DynamoTablePrefix  string        `env:"DYNAMO_TABLE_PREFIX"`
	DynamoEndpoint     string        `env:"DYNAMO_ENDPOINT"`
	JWTSecret          string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer          string        `env:"JWT_ISSUER"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"      envDefault:"5s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	MessagePageSize    int           `env:"MESSAGE_PAGE_SIZE"    envDefault:"50"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.StoreBackend != BackendBadger && cfg.StoreBackend != BackendDynamo {
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.MessagePageSize <= 0 {
		return Config{}, fmt.Errorf("MESSAGE_PAGE_SIZE must be positive, got %d", cfg.MessagePageSize)
	}
	return cfg, nil
}
