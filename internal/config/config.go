package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the binaries need. Booking knobs are injected into
// the reservation engine at construction, never read from the environment at
// call time.
type Config struct {
	HTTPAddr           string
	PGDSN              string
	MongoURI           string
	RedisAddr          string
	RabbitURL          string
	OTLPEndpoint       string
	HoldDuration       time.Duration
	MaxSeatsPerBooking int
	SweepInterval      time.Duration
	IdempotencyTTL     time.Duration
	CatalogCacheTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		PGDSN:              os.Getenv("PG_DSN"),
		MongoURI:           os.Getenv("MONGO_URI"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RabbitURL:          os.Getenv("RABBIT_URL"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		HoldDuration:       durationOr("HOLD_DURATION", 15*time.Minute),
		MaxSeatsPerBooking: intOr("MAX_SEATS_PER_BOOKING", 5),
		SweepInterval:      durationOr("SWEEP_INTERVAL", 6*time.Hour),
		IdempotencyTTL:     durationOr("IDEMPOTENCY_TTL", time.Hour),
		CatalogCacheTTL:    durationOr("CATALOG_CACHE_TTL", 30*time.Second),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func intOr(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
