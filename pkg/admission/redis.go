package admission

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed incr_window.lua
var incrWindowScript string

//go:embed decr_window.lua
var decrWindowScript string

//go:embed take_sliding.lua
var takeSlidingScript string

//go:embed record_violation.lua
var recordViolationScript string

// RedisStore is a CounterStore backed by Redis. Every operation is a single
// Lua script, so the read/compute/write cycle is atomic and the store is safe
// to share across many application instances enforcing one global budget.
//
// Scripts are loaded once at construction and invoked with EVALSHA. If Redis
// is restarted and its script cache cleared, operations return a NOSCRIPT
// error until the store is recreated.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration

	incrSHA      string
	decrSHA      string
	slidingSHA   string
	violationSHA string
}

var _ CounterStore = (*RedisStore)(nil)

// StoreOption configures a RedisStore.
type StoreOption func(*RedisStore)

// WithPrefix sets the deployment-wide key prefix (default "admission:").
func WithPrefix(prefix string) StoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTimeout caps the duration of each Redis round trip (default 5s). The
// cap is applied on top of whatever deadline the caller's context carries.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewRedisStore pings Redis, preloads the scripts and returns the store.
func NewRedisStore(client *redis.Client, opts ...StoreOption) (*RedisStore, error) {
	s := &RedisStore{
		client:  client,
		prefix:  "admission:",
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	for _, script := range []struct {
		src string
		sha *string
	}{
		{incrWindowScript, &s.incrSHA},
		{decrWindowScript, &s.decrSHA},
		{takeSlidingScript, &s.slidingSHA},
		{recordViolationScript, &s.violationSHA},
	} {
		sha, err := client.ScriptLoad(ctx, script.src).Result()
		if err != nil {
			return nil, fmt.Errorf("script load failed: %w", err)
		}
		*script.sha = sha
	}

	return s, nil
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.client.EvalSha(ctx, s.incrSHA, []string{s.prefix + key},
		window.Milliseconds(),
	).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("invalid lua response format")
	}

	count := toInt64(values[0])
	ttlMillis := toInt64(values[1])
	if ttlMillis < 0 {
		// PTTL returns -1/-2 for a missing expiry; fall back to the window.
		ttlMillis = window.Milliseconds()
	}
	return count, time.Duration(ttlMillis) * time.Millisecond, nil
}

func (s *RedisStore) DecrWindow(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.client.EvalSha(ctx, s.decrSHA, []string{s.prefix + key}).Err()
}

func (s *RedisStore) TakeSliding(ctx context.Context, key string, limit int64, window time.Duration, member string) (int64, time.Time, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.client.EvalSha(ctx, s.slidingSHA, []string{s.prefix + key},
		time.Now().UnixMicro(),
		window.Microseconds(),
		limit,
		member,
	).Result()
	if err != nil {
		return 0, time.Time{}, false, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return 0, time.Time{}, false, errors.New("invalid lua response format")
	}

	allowed := toInt64(values[0]) == 1
	count := toInt64(values[1])
	var oldest time.Time
	if micros := toInt64(values[2]); micros > 0 {
		oldest = time.UnixMicro(micros)
	}
	return count, oldest, allowed, nil
}

func (s *RedisStore) Violations(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid violation count %q: %w", val, err)
	}
	return n, nil
}

func (s *RedisStore) RecordViolation(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.client.EvalSha(ctx, s.violationSHA, []string{s.prefix + key},
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return 0, err
	}
	return toInt64(result), nil
}

// toInt64 normalizes the types go-redis hands back for Lua script replies.
func toInt64(val interface{}) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
