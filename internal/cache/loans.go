package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/calculations"
	"github.com/cloud-ru/loan-preview-go/internal/logger"
	"github.com/cloud-ru/loan-preview-go/internal/metrics"
)

const catalogKey = "loans:catalog"

// LoanSource источник загруженных кредитов
type LoanSource interface {
	Loans(ctx context.Context) ([]calculations.LoanContext, error)
}

// RedisConfig параметры подключения
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedis подключается к redis и проверяет соединение
func NewRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// LoanCache кэширует коллекцию кредитов источника в redis на ttl
type LoanCache struct {
	rdb    *redis.Client
	source LoanSource
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewLoanCache(rdb *redis.Client, source LoanSource, prefix string, ttl time.Duration, log *zap.Logger) *LoanCache {
	return &LoanCache{
		rdb:    rdb,
		source: source,
		prefix: prefix,
		ttl:    ttl,
		log:    logger.OrNop(log),
	}
}

func (c *LoanCache) key() string {
	return c.prefix + catalogKey
}

// Loans отдает кэшированную коллекцию или загружает ее из источника.
// Сбой redis не мешает загрузке из источника.
func (c *LoanCache) Loans(ctx context.Context) ([]calculations.LoanContext, error) {
	raw, err := c.rdb.Get(ctx, c.key()).Bytes()
	switch {
	case err == nil:
		var loans []calculations.LoanContext
		jerr := json.Unmarshal(raw, &loans)
		if jerr == nil {
			metrics.LoanCacheLookups.WithLabelValues("hit").Inc()
			return loans, nil
		}
		metrics.LoanCacheLookups.WithLabelValues("corrupt").Inc()
		c.log.Warn("dropping corrupt loan cache entry", zap.Error(jerr))
	case errors.Is(err, redis.Nil):
		metrics.LoanCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.LoanCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("loan cache read failed", zap.Error(err))
	}

	loans, err := c.source.Loans(ctx)
	if err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}

	payload, err := json.Marshal(loans)
	if err != nil {
		return loans, nil
	}
	if err := c.rdb.Set(ctx, c.key(), payload, c.ttl).Err(); err != nil {
		c.log.Warn("loan cache write failed", zap.Error(err))
	}
	return loans, nil
}
