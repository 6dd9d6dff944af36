package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	GoEnv       string `envconfig:"GO_ENV" default:"dev"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"storefront"`

	// DATABASE_URL があれば最優先
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"storefront"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	DBMaxOpenConns   int    `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`

	JWTSecret    string        `envconfig:"JWT_SECRET"`
	AccessTTL    time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"24h"`
	FEURL        string        `envconfig:"FE_URL" default:"http://localhost:3000"`
	WebhookToken string        `envconfig:"PAYMENT_WEBHOOK_SECRET"`

	// 空ならカートキャッシュ無効
	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	CartCacheTTL time.Duration `envconfig:"CART_CACHE_TTL" default:"15m"`

	// 空ならイベント発行無効（ログ通知のみ）
	KafkaBrokers    string        `envconfig:"KAFKA_BROKERS"`
	KafkaOrderTopic string        `envconfig:"KAFKA_ORDER_TOPIC" default:"order-events"`
	NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"3s"`
	MailFrom        string        `envconfig:"MAIL_FROM" default:"orders@storefront.local"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Loadは .env（あれば）→ 環境変数 の順に読む
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// ファイルが無いのはOK
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(c.Port, ":")); err != nil {
		return fmt.Errorf("PORT must be number: %w", err)
	}
	if c.DBMaxOpenConns < 1 {
		return errors.New("DB_MAX_OPEN_CONNS must be >= 1")
	}
	// 無いと /payments/confirm を誰でも叩ける
	if !c.IsDev() && strings.TrimSpace(c.WebhookToken) == "" {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required outside dev")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.GoEnv == "" || c.GoEnv == "dev"
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// KAFKA_BROKERS はカンマ区切り
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
