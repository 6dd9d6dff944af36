package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, "order-events", cfg.KafkaOrderTopic)
	assert.Empty(t, cfg.Brokers())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load("testdata/does-not-exist.env")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{PostgresHost: "db", PostgresPort: 5433, PostgresUser: "u", PostgresPassword: "p", PostgresDB: "shop", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=shop sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.DSN())
}

func TestConfig_Brokers(t *testing.T) {
	cfg := Config{KafkaBrokers: " k1:9092, ,k2:9092 "}
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
}

func TestConfig_Validate_Port(t *testing.T) {
	cfg := Config{JWTSecret: "x", Port: "abc", DBMaxOpenConns: 1}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_WebhookSecretOutsideDev(t *testing.T) {
	cfg := Config{JWTSecret: "x", Port: "8080", DBMaxOpenConns: 1, GoEnv: "prod"}
	assert.ErrorContains(t, cfg.Validate(), "PAYMENT_WEBHOOK_SECRET")

	cfg.WebhookToken = "hook"
	assert.NoError(t, cfg.Validate())

	// devでは無くても起動できる
	cfg = Config{JWTSecret: "x", Port: "8080", DBMaxOpenConns: 1, GoEnv: "dev"}
	assert.NoError(t, cfg.Validate())
}
