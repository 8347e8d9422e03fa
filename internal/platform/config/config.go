package config

import (
	"os"
	"time"
)

// Server captures the configuration for the holder layer and its collaborators.
type Server struct {
	Addr         string
	LogLevel     string
	RedisURL     string
	KafkaBrokers string
	CacheTTL     time.Duration
	// WebhookTrim strips heavyweight payload keys (offers, previews,
	// attachments) from webhook notifications when set.
	WebhookTrim bool
}

// DefaultCacheTTL bounds how long record cache entries live when a caller
// supplies no explicit TTL and the record type declares none.
var DefaultCacheTTL = 30 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("HOLDFAST_ADDR")
	if addr == "" {
		addr = ":8021"
	}

	logLevel := os.Getenv("HOLDFAST_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	cacheTTL := DefaultCacheTTL
	if ttlStr := os.Getenv("HOLDFAST_CACHE_TTL"); ttlStr != "" {
		if duration, err := time.ParseDuration(ttlStr); err == nil {
			cacheTTL = duration
		}
	}

	return Server{
		Addr:         addr,
		LogLevel:     logLevel,
		RedisURL:     os.Getenv("HOLDFAST_REDIS_URL"),
		KafkaBrokers: os.Getenv("HOLDFAST_KAFKA_BROKERS"),
		CacheTTL:     cacheTTL,
		WebhookTrim:  os.Getenv("HOLDFAST_WEBHOOK_TRIM") == "true",
	}
}
