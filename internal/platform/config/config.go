package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable through CREDREG_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const DefaultProfileTopic = "credreg.profile.credentials"

// DevProofSigningKey signs identity proofs when PROOF_SIGNING_KEY is unset in dev.
const DevProofSigningKey = "dev-proof-key-change-me"

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	Store       string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Proof       ProofConfig

	// RegistryAdmin bootstraps the admin identity on startup when set.
	RegistryAdmin string
	AuditBuffer   int
}

// RedisConfig holds connection and pool tuning for the Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds producer settings for the profile notifier.
type KafkaConfig struct {
	Brokers      string
	ProfileTopic string
	Acks         string
	Retries      int
}

// ProofConfig configures verification of caller identity proofs.
type ProofConfig struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          envOr("CREDREG_ADDR", ":8080"),
		Environment:   envOr("CREDREG_ENV", "dev"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		Store:         strings.ToLower(envOr("CREDREG_STORE", StoreMemory)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RegistryAdmin: os.Getenv("REGISTRY_ADMIN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:      os.Getenv("KAFKA_BROKERS"),
			ProfileTopic: envOr("KAFKA_PROFILE_TOPIC", DefaultProfileTopic),
			Acks:         envOr("KAFKA_ACKS", "all"),
			Retries:      3,
		},
		Proof: ProofConfig{
			SigningKey: os.Getenv("PROOF_SIGNING_KEY"),
			Issuer:     envOr("PROOF_ISSUER", "credreg"),
			TTL:        15 * time.Minute,
		},
	}

	var err error
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", cfg.Redis.MinIdleConns); err != nil {
		return Server{}, err
	}
	if cfg.AuditBuffer, err = envInt("AUDIT_BUFFER", 0); err != nil {
		return Server{}, err
	}
	if cfg.Proof.TTL, err = envDuration("PROOF_TTL", cfg.Proof.TTL); err != nil {
		return Server{}, err
	}

	if cfg.Proof.SigningKey == "" {
		if cfg.Environment != "dev" {
			return Server{}, fmt.Errorf("PROOF_SIGNING_KEY is required outside dev")
		}
		cfg.Proof.SigningKey = DevProofSigningKey
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Server{}, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if cfg.Redis.URL == "" {
			return Server{}, fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return Server{}, fmt.Errorf("unknown CREDREG_STORE %q", cfg.Store)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}
