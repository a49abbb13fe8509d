package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures process-level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogFormat       string
	LogLevel        string
	ShutdownTimeout time.Duration

	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
}

// DatabaseConfig configures the Postgres pool. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
	AutoMigrate     bool
}

// RedisConfig configures the idempotency store. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures confirmation publishing. No brokers selects the log sender.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	NotificationTopic string
	Partitions        int32
	ReplicationFactor int16
}

type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
}

type NotificationConfig struct {
	BufferSize       int
	SendTimeout      time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

type IdempotencyConfig struct {
	TTL time.Duration
}

// RateLimitConfig bounds checkout submissions per client. Zero requests
// disables the limit.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// FromEnv builds a Server config from environment variables (and a .env file
// when one exists) so main stays lean.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:            getString("STARTINGLINE_ADDR", ":8080"),
		Environment:     getString("APP_ENV", "development"),
		LogFormat:       getString("LOG_FORMAT", "json"),
		LogLevel:        getString("LOG_LEVEL", "info"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       getDuration("DB_TX_TIMEOUT", 5*time.Second),
			AutoMigrate:     getBool("DB_AUTO_MIGRATE", true),
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
			Brokers:           getList("KAFKA_BROKERS"),
			ClientID:          getString("KAFKA_CLIENT_ID", "startingline"),
			NotificationTopic: getString("KAFKA_NOTIFICATION_TOPIC", "registration.confirmed"),
			Partitions:        int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Auth: AuthConfig{
			JWTSigningKey: getString("JWT_SIGNING_KEY", devSigningKey),
			Issuer:        getString("JWT_ISSUER", "startingline"),
			Audience:      getString("JWT_AUDIENCE", "startingline-web"),
			TokenTTL:      getDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Notification: NotificationConfig{
			BufferSize:       getInt("NOTIFY_BUFFER_SIZE", 1024),
			SendTimeout:      getDuration("NOTIFY_SEND_TIMEOUT", 5*time.Second),
			FailureThreshold: getInt("NOTIFY_FAILURE_THRESHOLD", 5),
			Cooldown:         getDuration("NOTIFY_COOLDOWN", 30*time.Second),
		},
		Idempotency: IdempotencyConfig{
			TTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

// IsProduction reports whether the process runs with production settings.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// Validate rejects settings that are only acceptable in development.
func (s Server) Validate() error {
	if s.IsProduction() {
		if s.Auth.JWTSigningKey == devSigningKey {
			return errors.New("JWT_SIGNING_KEY must be set in production")
		}
		if s.Database.URL == "" {
			return errors.New("DATABASE_URL must be set in production")
		}
	}
	if s.RateLimit.Requests > 0 && s.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if s.Database.TxTimeout <= 0 {
		return errors.New("DB_TX_TIMEOUT must be positive")
	}
	return nil
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
