package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	UploadsDir         string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	Postgres Postgres

	KafkaBrokers []string
	OrderTopic   string

	JWTSecret string

	WhapiURL   string
	WhapiToken string

	OrderRateRPS   float64
	OrderRateBurst int
	// TrustProxy takes the client address from X-Forwarded-For. Enable only
	// behind a proxy that overwrites the header.
	TrustProxy bool
	LogLevel   string
}

type Postgres struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	MigrationsPath string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	pgPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	rps, err := strconv.ParseFloat(getEnv("ORDER_RATE_RPS", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_RATE_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("ORDER_RATE_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_RATE_BURST: %w", err)
	}
	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUST_PROXY: %w", err)
	}
	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		UploadsDir:         getEnv("UPLOADS_DIR", "./uploads"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "vapealley"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		Postgres: Postgres{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           pgPort,
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "vapealley"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/checkout/migrations"),
		},
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderTopic:     getEnv("ORDER_TOPIC", "order-events"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		WhapiURL:       getEnv("WHAPI_URL", "https://gate.whapi.cloud/messages/text"),
		WhapiToken:     getEnv("WHAPI_TOKEN", ""),
		OrderRateRPS:   rps,
		OrderRateBurst: burst,
		TrustProxy:     trustProxy,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
