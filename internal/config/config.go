package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from environment variables; defaults match the local
// docker-compose setup.
type Config struct {
	HTTPAddr  string        `env:"HTTP_ADDR" envDefault:":8080"`
	MySQLDSN  string        `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/storefront?parseTime=true"`
	RedisAddr string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	StateDir  string        `env:"STATE_DIR" envDefault:"data"`
	OpTimeout time.Duration `env:"OP_TIMEOUT" envDefault:"5s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
