package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	Store           string        `envconfig:"STORE" default:"postgres"` // postgres | memory
	PostgresHost    string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort    int           `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser    string        `envconfig:"POSTGRES_USER" default:"canteen"`
	PostgresPass    string        `envconfig:"POSTGRES_PASSWORD" default:"canteen"`
	PostgresDB      string        `envconfig:"POSTGRES_DB" default:"canteen"`
	MigrationsDir   string        `envconfig:"MIGRATIONS_DIR" default:"./migrations"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers    []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	OrderEventTopic string        `envconfig:"ORDER_EVENT_TOPIC" default:"order-events"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
