package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultRenderSplitBytes is the per-file threshold the renderer uses before
// moving exhibit content into a new part. 8 MiB leaves headroom under the
// 10 MB caps common to object-storage multipart and mail transports.
const DefaultRenderSplitBytes = 8 << 20

// Server captures process-level configuration.
type Server struct {
	Addr             string
	DatabaseURL      string
	JWTSigningKey    string
	RenderSplitBytes int
	ArtifactBucket   string
	Redis            RedisConfig
	Kafka            KafkaConfig
}

// RedisConfig holds connection settings for the optional Redis render guard.
// An empty URL disables Redis; the in-process guard is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the optional audit event publisher.
// Empty Brokers disables publishing; audit events still reach the local store.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ATTEST_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	splitBytes := DefaultRenderSplitBytes
	if raw := os.Getenv("RENDER_SPLIT_BYTES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			splitBytes = parsed
		}
	}

	bucket := os.Getenv("ARTIFACT_BUCKET")
	if bucket == "" {
		bucket = "attest-reports"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "attest.audit.compliance"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:             addr,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSigningKey:    jwtSigningKey,
		RenderSplitBytes: splitBytes,
		ArtifactBucket:   bucket,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
