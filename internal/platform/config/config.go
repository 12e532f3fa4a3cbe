// Package config loads process configuration from the environment. A local
// .env file, when present, is loaded first and never overrides variables
// already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the whole process configuration.
type Config struct {
	Server   Server
	Auth     Auth
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Absence  AbsenceConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// IsProduction reports whether the process runs in production.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// Auth holds token verification settings.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	AdminToken    string
}

// DatabaseConfig selects the store. An empty URL runs on the in-memory store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures the optional Redis client. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the notification producer. No brokers means
// notifications are only logged.
type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
	Partitions        int32
	ReplicationFactor int16
}

// AbsenceConfig drives the periodic absence evaluation worker.
type AbsenceConfig struct {
	Enabled      bool
	PollInterval time.Duration
	LockTTL      time.Duration
	// LookbackDays is how many earlier days each sweep re-checks, so an
	// occurrence that ended near midnight or during downtime is still evaluated.
	LookbackDays int
}

const devSigningKey = "dev-secret-key-change-in-production"

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            getEnv("FLOCK_ADDR", ":8080"),
			Environment:     getEnv("FLOCK_ENV", "development"),
			ShutdownTimeout: getDuration("FLOCK_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getDuration("FLOCK_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: Auth{
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     getEnv("JWT_ISSUER", "flock"),
			AdminToken:    os.Getenv("ADMIN_API_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(os.Getenv("KAFKA_BROKERS")),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "flock.notifications"),
			Partitions:        int32(getInt("KAFKA_NOTIFICATION_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Absence: AbsenceConfig{
			Enabled:      getBool("ABSENCE_WORKER_ENABLED", true),
			PollInterval: getDuration("ABSENCE_POLL_INTERVAL", 15*time.Minute),
			LockTTL:      getDuration("ABSENCE_LOCK_TTL", 2*time.Minute),
			LookbackDays: getInt("ABSENCE_LOOKBACK_DAYS", 1),
		},
	}

	if cfg.Server.IsProduction() && cfg.Auth.JWTSigningKey == devSigningKey {
		return Config{}, errors.New("JWT_SIGNING_KEY must be set in production")
	}
	if cfg.Absence.PollInterval <= 0 {
		return Config{}, errors.New("ABSENCE_POLL_INTERVAL must be positive")
	}
	if cfg.Absence.LookbackDays < 0 {
		return Config{}, errors.New("ABSENCE_LOOKBACK_DAYS must not be negative")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
