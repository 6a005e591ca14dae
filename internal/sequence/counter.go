package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Counter performs an atomic increment-and-fetch on a named counter.
type Counter interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// DBCounter keeps counters in the sequence_counters table.
type DBCounter struct {
	db *gorm.DB
}

func NewDBCounter(db *gorm.DB) *DBCounter {
	return &DBCounter{db: db}
}

// upsertIncrement creates the row at 1 or bumps it in a single statement, so
// there is no window where two callers both initialize the counter.
const upsertIncrement = `INSERT INTO sequence_counters (id, seq) VALUES (?, 1)
ON CONFLICT (id) DO UPDATE SET seq = sequence_counters.seq + 1
RETURNING seq`

func (c *DBCounter) Increment(ctx context.Context, key string) (int64, error) {
	if c == nil || c.db == nil {
		return 0, errors.New("sequence counter not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, errors.New("counter key is required")
	}

	var seq int64
	if err := c.db.WithContext(ctx).Raw(upsertIncrement, key).Scan(&seq).Error; err != nil {
		return 0, err
	}
	if seq <= 0 {
		return 0, errors.New("counter returned no value")
	}
	return seq, nil
}

type redisIncrementer interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// Floor reports the highest value already issued for a counter key.
type Floor interface {
	Floor(ctx context.Context, key string) (int64, error)
}

// RedisCounter relies on INCR, which is atomic on the server. When the key is
// missing (first use, or Redis lost its data) it is seeded from floor with
// SETNX before incrementing, so numbers never restart below what the orders
// table already holds.
type RedisCounter struct {
	client redisIncrementer
	floor  Floor
}

// NewRedisCounter builds a counter over client. A nil floor starts missing
// keys at zero.
func NewRedisCounter(client redisIncrementer, floor Floor) *RedisCounter {
	return &RedisCounter{client: client, floor: floor}
}

func (c *RedisCounter) Increment(ctx context.Context, key string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, errors.New("sequence counter not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, errors.New("counter key is required")
	}
	redisKey := c.client.CounterKey(key)
	if err := c.seedIfMissing(ctx, key, redisKey); err != nil {
		return 0, err
	}
	return c.client.Incr(ctx, redisKey)
}

func (c *RedisCounter) seedIfMissing(ctx context.Context, key, redisKey string) error {
	if c.floor == nil {
		return nil
	}
	_, err := c.client.Get(ctx, redisKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	floor, err := c.floor.Floor(ctx, key)
	if err != nil {
		return fmt.Errorf("read counter floor: %w", err)
	}
	if floor <= 0 {
		return nil
	}
	// losing the race means another caller seeded it already
	_, err = c.client.SetNX(ctx, redisKey, floor, 0)
	return err
}

// OrderNumberFloor derives the order number floor from the orders table.
type OrderNumberFloor struct {
	db     *gorm.DB
	prefix string
}

func NewOrderNumberFloor(db *gorm.DB, prefix string) *OrderNumberFloor {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &OrderNumberFloor{db: db, prefix: prefix}
}

// Numbers widen past six digits, so length orders before the text does.
const latestOrderNumber = `SELECT order_number FROM orders
WHERE order_number LIKE ?
ORDER BY length(order_number) DESC, order_number DESC
LIMIT 1`

// Floor returns the numeric part of the highest order number. Keys other than
// OrderNumberKey have no floor.
func (f *OrderNumberFloor) Floor(ctx context.Context, key string) (int64, error) {
	if f == nil || f.db == nil || key != OrderNumberKey {
		return 0, nil
	}
	var latest string
	if err := f.db.WithContext(ctx).Raw(latestOrderNumber, f.prefix+"%").Scan(&latest).Error; err != nil {
		return 0, err
	}
	if latest == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(latest, f.prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse order number %q: %w", latest, err)
	}
	return seq, nil
}
