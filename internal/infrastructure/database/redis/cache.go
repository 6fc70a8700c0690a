package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeCacheError, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "cache serialization failed")
)

// Cache is a typed key/value cache.
type Cache interface {
	// Get decodes the value stored under key into dest. Returns ErrCacheMiss
	// when the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores value under key. A zero ttl uses the default TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// GetOrSet reads key into dest, calling loader on a miss. Concurrent
	// misses on one key share a single loader call.
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Ping(ctx context.Context) error
}

// Serializer converts cached values to bytes.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// MsgpackSerializer is the default serializer.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(v interface{}) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// JSONSerializer keeps cached values readable with redis-cli.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (JSONSerializer) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type redisCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	serializer Serializer
	jitter     float64
	group      singleflight.Group
}

type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

func WithSerializer(s Serializer) CacheOption {
	return func(c *redisCache) { c.serializer = s }
}

// WithJitter spreads TTLs by ±fraction. Zero disables jitter.
func WithJitter(fraction float64) CacheOption {
	return func(c *redisCache) { c.jitter = fraction }
}

func NewRedisCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client:     client,
		logger:     log,
		prefix:     "helmkit:",
		defaultTTL: time.Hour,
		serializer: MsgpackSerializer{},
		jitter:     0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string { return c.prefix + key }

func (c *redisCache) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if c.jitter <= 0 {
		return ttl
	}
	return ttl + time.Duration(float64(ttl)*c.jitter*(rand.Float64()*2-1))
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to read from cache")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.ttl(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write to cache")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err != ErrCacheMiss {
		c.logger.Warn("cache read failed, loading directly", logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.logger.Warn("failed to populate cache", logging.String("key", key), logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	return assign(dest, v)
}

// assign copies v into the pointer dest. Values of the pointed-to type (or a
// pointer to it) are copied directly; anything else goes through the
// serializer.
func assign(dest, v interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return errors.New(errors.ErrCodeInternal, "cache destination must be a non-nil pointer")
	}
	src := reflect.ValueOf(v)
	if !src.IsValid() {
		return nil
	}
	target := dv.Elem()
	switch {
	case src.Type().AssignableTo(target.Type()):
		target.Set(src)
	case src.Kind() == reflect.Ptr && !src.IsNil() && src.Elem().Type().AssignableTo(target.Type()):
		target.Set(src.Elem())
	default:
		data, err := msgpack.Marshal(v)
		if err != nil {
			return ErrSerializationFailed.WithCause(err)
		}
		if err := msgpack.Unmarshal(data, dest); err != nil {
			return ErrSerializationFailed.WithCause(err)
		}
	}
	return nil
}

func (c *redisCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.fullKey(prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache keys")
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (c *redisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx) }
