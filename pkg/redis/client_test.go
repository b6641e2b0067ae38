package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/pkg/config"
)

// fakeKV is an in-memory cmdable that records expiries and deletions.
type fakeKV struct {
	values    map[string]string
	counters  map[string]int64
	expiries  map[string]time.Duration
	expireErr error
	deleted   []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		values:   map[string]string{},
		counters: map[string]int64{},
		expiries: map[string]time.Duration{},
	}
}

func (f *fakeKV) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := f.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeKV) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, taken := f.values[key]; taken {
		return redis.NewBoolResult(false, nil)
	}
	f.Set(ctx, key, value, ttl)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKV) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeKV) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	f.expiries[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
		delete(f.counters, key)
	}
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIncrWithTTLStartsWindowOnFirstHit(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	client := &Client{store: kv}
	key := client.RateLimitKey("login:ip:1.2.3.4")

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
	assert.Equal(t, map[string]time.Duration{key: time.Minute}, kv.expiries, "expiry set once per window")
}

func TestIncrWithTTLDropsCounterWhenExpireFails(t *testing.T) {
	kv := newFakeKV()
	kv.expireErr = errors.New("readonly replica")
	client := &Client{store: kv}

	_, err := client.IncrWithTTL(context.Background(), "k", time.Minute)
	assert.ErrorContains(t, err, "readonly replica")
	assert.Equal(t, []string{"k"}, kv.deleted)
	assert.NotContains(t, kv.counters, "k")
}

func TestUnconnectedClient(t *testing.T) {
	ctx := context.Background()
	for name, client := range map[string]*Client{"zero": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			_, err := client.IncrWithTTL(ctx, "k", time.Second)
			assert.ErrorIs(t, err, ErrNotConnected)
			assert.ErrorIs(t, client.Ping(ctx), ErrNotConnected)
			_, err = client.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotConnected)
			assert.NoError(t, client.Close())
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 25, DB: 5, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB, "url wins over env")
	assert.Equal(t, 25, opts.PoolSize, "env fills what the url leaves unset")
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	_, err = optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	_, err = optionsFromConfig(config.RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestSetNXClaimsOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeKV()}
	key := client.IdempotencyKey("orders", "abc")

	won, err := client.SetNX(ctx, key, "pending", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = client.SetNX(ctx, key, "pending", time.Minute)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "shop:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "shop:idempotency:scope", client.IdempotencyKey("scope", ""), "empty parts skipped")
	assert.Equal(t, "shop:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "shop:session:access:jti", client.AccessSessionKey("jti"))
}
