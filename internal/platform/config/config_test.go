package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("DB_TX_TIMEOUT", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "registration.confirmed", cfg.Kafka.NotificationTopic)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STARTINGLINE_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("DB_TX_TIMEOUT", "2s")
	t.Setenv("NOTIFY_BUFFER_SIZE", "16")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Database.TxTimeout)
	assert.Equal(t, 16, cfg.Notification.BufferSize)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestValidateProduction(t *testing.T) {
	cfg := Server{
		Environment: "production",
		Auth:        AuthConfig{JWTSigningKey: devSigningKey},
		Database:    DatabaseConfig{URL: "postgres://db", TxTimeout: time.Second},
	}
	require.Error(t, cfg.Validate())

	cfg.Auth.JWTSigningKey = "a-real-secret"
	require.NoError(t, cfg.Validate())

	cfg.Database.URL = ""
	require.Error(t, cfg.Validate())
}
