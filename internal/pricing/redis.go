package pricing

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// RedisConfig holds connection parameters for the Redis price source.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool

	// MaxAge rejects prices older than this; zero disables the check.
	MaxAge time.Duration
}

// RedisSource reads prices from a Redis instance populated by an external
// feed process. Each symbol's price is stored as a hash at key
// "price:{symbol}" with fields "price" and "ts" (Unix nanosecond timestamp).
type RedisSource struct {
	rdb    *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisSource connects to Redis, pings it to verify connectivity, and
// returns the source. It returns an error if the connection cannot be
// established.
func NewRedisSource(ctx context.Context, cfg RedisConfig) (*RedisSource, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pricing: redis ping: %w", err)
	}

	return &RedisSource{rdb: rdb, maxAge: cfg.MaxAge, now: time.Now}, nil
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// SetPrice stores the latest price and timestamp for a symbol. The bot itself
// only reads; this is the write half of the contract with the feeder process,
// kept here so both sides agree on the key shape.
func (r *RedisSource) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := r.rdb.HSet(ctx, priceKey(symbol), fields).Err(); err != nil {
		return fmt.Errorf("pricing: redis set price %s: %w", symbol, err)
	}
	return nil
}

// Price implements Source. It returns domain.ErrNoPrice when the symbol is
// missing or the stored price is older than the configured maximum age.
func (r *RedisSource) Price(ctx context.Context, symbol string) (float64, error) {
	vals, err := r.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, fmt.Errorf("pricing: redis get price %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return 0, errNoPrice(symbol)
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, errNoPrice(symbol)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, fmt.Errorf("pricing: parse price %s: %w", symbol, err)
	}

	if r.maxAge > 0 {
		tsStr, ok := vals["ts"]
		if !ok {
			return 0, errNoPrice(symbol)
		}
		tsNano, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("pricing: parse ts %s: %w", symbol, err)
		}
		if r.now().Sub(time.Unix(0, tsNano)) > r.maxAge {
			return 0, errNoPrice(symbol)
		}
	}

	return price, nil
}

// Name implements Source.
func (r *RedisSource) Name() string { return "redis" }

// Close releases the Redis connection.
func (r *RedisSource) Close() error {
	return r.rdb.Close()
}

func errNoPrice(symbol string) error {
	return fmt.Errorf("%w for %s", domain.ErrNoPrice, symbol)
}
