package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	ServiceName   string
	DataDir       string
	AdminUsername string

	OrdersPageSize  int
	MaxLineQuantity int
	SessionTTL      time.Duration

	// Optional backends. Empty means the in-process default is used.
	RedisAddr    string
	PostgresDSN  string
	KafkaBrokers []string

	InboundTopic   string
	InboundGroup   string
	InboundWorkers int

	LogLevel  string
	LogFormat string
}

func Load() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		ServiceName:   getenv("SERVICE_NAME", "storefront-bot"),
		DataDir:       getenv("DATA_DIR", "data"),
		AdminUsername: getenv("ADMIN_USERNAME", "CrackerJackson"),

		OrdersPageSize:  getint("ORDERS_PAGE_SIZE", 5),
		MaxLineQuantity: getint("MAX_LINE_QUANTITY", 100),
		SessionTTL:      getduration("SESSION_TTL", 24*time.Hour),

		RedisAddr:    getenv("REDIS_ADDR", ""),
		PostgresDSN:  getenv("POSTGRES_DSN", ""),
		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),

		InboundTopic:   getenv("KAFKA_INBOUND_TOPIC", ""),
		InboundGroup:   getenv("KAFKA_GROUP", "storefront-bot"),
		InboundWorkers: getint("KAFKA_WORKERS", 4),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	i, err := strconv.Atoi(getenv(k, ""))
	if err != nil || i < 0 {
		return def
	}
	return i
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
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
