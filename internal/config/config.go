package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию сервиса предварительного расчета
type Config struct {
	Port              int
	BackendURL        string
	BackendTimeout    time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisPrefix       string
	LoanCacheTTL      time.Duration
	MaxPrincipal      float64
	DayCountBasis     int
	ClampNegativeDays bool
	OTELEndpoint      string
	OTELServiceName   string
	LogLevel          string
	LogFormat         string
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvInt("PORT", 8000),
		BackendURL:        getEnvString("BACKEND_URL", "http://localhost:8080/api"),
		BackendTimeout:    getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		RedisAddr:         getEnvString("REDIS_ADDR", ""),
		RedisPassword:     getEnvString("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPrefix:       getEnvString("REDIS_PREFIX", "loan_preview_"),
		LoanCacheTTL:      getEnvDuration("LOAN_CACHE_TTL", 30*time.Second),
		MaxPrincipal:      getEnvFloat("MAX_PRINCIPAL", 1e9),
		DayCountBasis:     getEnvInt("DAY_COUNT_BASIS", 30),
		ClampNegativeDays: getEnvBool("CLAMP_NEGATIVE_DAYS", false),
		OTELEndpoint:      getEnvString("OTEL_ENDPOINT", ""),
		OTELServiceName:   getEnvString("OTEL_SERVICE_NAME", "loan-preview"),
		LogLevel:          getEnvString("LOG_LEVEL", "info"),
		LogFormat:         getEnvString("LOG_FORMAT", "json"),
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// PrincipalCap возвращает верхнюю границу суммы основного долга
func (c *Config) PrincipalCap() float64 {
	return c.MaxPrincipal
}
