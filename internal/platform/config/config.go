package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server wires at startup. It is passed into
// constructors explicitly; nothing reads the environment after FromEnv.
type Config struct {
	Addr string

	JWT   JWTConfig
	Store StoreConfig
	OCR   OCRConfig
	Kafka KafkaConfig
	Redis RedisConfig

	// WorkerConcurrency bounds concurrent pipeline invocations.
	WorkerConcurrency int
}

// JWTConfig configures the pipeline token service. UploadAPIKeyHash is the
// bcrypt hash of the shared upload key; the token endpoint verifies it before
// minting a scoped JWT.
type JWTConfig struct {
	SigningKey       string
	Issuer           string
	Audience         string
	TokenTTL         time.Duration
	UploadAPIKeyHash string
}

// StoreConfig selects the durable case/profile store backend.
type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend     string
	PostgresDSN string
}

// OCRConfig selects and tunes the extraction providers.
type OCRConfig struct {
	// Provider is "docscan" or "static".
	Provider string
	// FallbackProvider wraps the primary when non-empty.
	FallbackProvider string
	// Timeout bounds each extraction call.
	Timeout time.Duration

	DocscanEndpoint string
	DocscanAPIKey   string
}

// KafkaConfig configures the result emitter. Empty brokers disable Kafka and
// results are logged instead.
type KafkaConfig struct {
	Brokers      []string
	ResultTopic  string
	SummaryTopic string
}

// RedisConfig configures the delivery dedup store. Empty URL falls back to
// the in-memory guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// DedupTTL bounds how long a processed delivery is remembered.
	DedupTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr: envOr("VERIDOC_ADDR", ":8080"),
		JWT: JWTConfig{
			SigningKey:       envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:           envOr("JWT_ISSUER", "veridoc"),
			Audience:         envOr("JWT_AUDIENCE", "veridoc-pipeline"),
			TokenTTL:         envDurationOr("JWT_TOKEN_TTL", time.Hour),
			UploadAPIKeyHash: os.Getenv("UPLOAD_API_KEY_HASH"),
		},
		Store: StoreConfig{
			Backend:     envOr("STORE_BACKEND", "memory"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
		},
		OCR: OCRConfig{
			// Static is the dev default; production sets OCR_PROVIDER=docscan
			// with DOCSCAN_ENDPOINT and keeps static as the fallback.
			Provider:         envOr("OCR_PROVIDER", "static"),
			FallbackProvider: envOr("OCR_FALLBACK_PROVIDER", "static"),
			Timeout:          envDurationOr("OCR_TIMEOUT", 30*time.Second),
			DocscanEndpoint:  os.Getenv("DOCSCAN_ENDPOINT"),
			DocscanAPIKey:    os.Getenv("DOCSCAN_API_KEY"),
		},
		Kafka: KafkaConfig{
			Brokers:      splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			ResultTopic:  envOr("KAFKA_RESULT_TOPIC", "veridoc.artifact-results"),
			SummaryTopic: envOr("KAFKA_SUMMARY_TOPIC", "veridoc.case-summaries"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			DedupTTL:     envDurationOr("DEDUP_TTL", 24*time.Hour),
		},
		WorkerConcurrency: envIntOr("WORKER_CONCURRENCY", 8),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if part := csv[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
