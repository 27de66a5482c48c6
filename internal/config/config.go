package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage задаёт тип хранилища заказов и каталога.
type Storage string

const (
	StorageMemory   Storage = "memory"
	StoragePostgres Storage = "postgres"
)

// Config собирает настройки сервиса из переменных окружения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	ServiceName string

	Storage     Storage
	PostgresDSN string

	RedisAddr string

	KafkaBrokers []string
	OrderTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// Load читает .env (если есть) и собирает конфигурацию. Значения по умолчанию
// позволяют запустить сервис локально без единой переменной окружения.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		MetricsAddr: getenv("METRICS_ADDR", ":9090"),
		ServiceName: getenv("SERVICE_NAME", "funko-orders"),

		Storage:     parseStorage(getenv("STORAGE", "memory")),
		PostgresDSN: getenv("POSTGRES_DSN", ""),

		RedisAddr: getenv("REDIS_ADDR", ""),

		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),
		OrderTopic:   getenv("ORDER_EVENTS_TOPIC", ""),

		OutboxPollInterval: getenvDuration("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    getenvInt("OUTBOX_BATCH_SIZE", 100),
	}
}

func parseStorage(raw string) Storage {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return StoragePostgres
	default:
		return StorageMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
