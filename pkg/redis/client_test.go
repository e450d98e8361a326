package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/perfumery-backend/pkg/config"
)

type fakeCommands struct {
	values  map[string]string
	counts  map[string]int64
	sets    map[string]map[string]bool
	expires map[string]time.Duration
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		values:  map[string]string{},
		counts:  map[string]int64{},
		sets:    map[string]map[string]bool{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeCommands) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *goredis.IntCmd {
	f.counts[key]++
	return goredis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCommands) Expire(_ context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	f.expires[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeCommands) SAdd(_ context.Context, key string, members ...any) *goredis.IntCmd {
	if f.sets[key] == nil {
		f.sets[key] = map[string]bool{}
	}
	for _, m := range members {
		f.sets[key][fmt.Sprint(m)] = true
	}
	return goredis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeCommands) SMembers(_ context.Context, key string) *goredis.StringSliceCmd {
	out := []string{}
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return goredis.NewStringSliceResult(out, nil)
}

func (f *fakeCommands) SRem(_ context.Context, key string, members ...any) *goredis.IntCmd {
	for _, m := range members {
		delete(f.sets[key], fmt.Sprint(m))
	}
	return goredis.NewIntResult(int64(len(members)), nil)
}

func TestIncrWithTTLArmsWindowOnce(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{Keyspace: NewKeyspace(""), cmd: fake}
	key := client.RateLimitKey("login:ip:1.2.3.4")

	for want := int64(1); want <= 3; want++ {
		n, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Minute, fake.expires[key])

	fake.expires[key] = 0
	_, err := client.IncrWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, fake.expires[key], "expiry is only armed on the first hit")
}

func TestSessionIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{Keyspace: NewKeyspace(""), cmd: fake}
	key := client.UserSessionsKey("42")

	require.NoError(t, client.SAddWithTTL(ctx, key, time.Hour, "jti-1", "jti-2"))
	assert.Equal(t, time.Hour, fake.expires[key])

	members, err := client.SMembers(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"jti-1", "jti-2"}, members)

	require.NoError(t, client.SRem(ctx, key, "jti-1"))
	members, err = client.SMembers(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"jti-2"}, members)

	empty, err := client.SMembers(ctx, client.UserSessionsKey("missing"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	client := &Client{cmd: newFakeCommands()}
	_, err := client.Get(context.Background(), "absent")
	assert.True(t, errors.Is(err, Nil))

	ok, err := client.SetNX(context.Background(), "k", "v", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.SetNX(context.Background(), "k", "other", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnconnectedClientErrors(t *testing.T) {
	client := &Client{}
	assert.Error(t, client.Ping(context.Background()))
	_, err := client.IncrWithTTL(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.NoError(t, client.Close())
}

func TestKeyspace(t *testing.T) {
	ks := NewKeyspace("")
	assert.Equal(t, "perfumery:idempotency:user:7:abc", ks.IdempotencyKey("user:7", "abc"))
	assert.Equal(t, "perfumery:rate_limit:login", ks.RateLimitKey("login"))
	assert.Equal(t, "perfumery:session:access:jti", ks.AccessSessionKey("jti"))
	assert.Equal(t, "perfumery:session:user:7", ks.UserSessionsKey("7"))
	assert.Equal(t, "perfumery:idempotency:id", ks.IdempotencyKey(" ", "id"))

	staging := NewKeyspace(" staging: ")
	assert.Equal(t, "staging:rate_limit:register", staging.RateLimitKey("register"))
	assert.Equal(t, "perfumery:rate_limit:x", Keyspace{}.RateLimitKey("x"))
}

func TestDialOptions(t *testing.T) {
	opts, err := dialOptions(config.RedisConfig{Address: "cache:6379", DB: 2, PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = dialOptions(config.RedisConfig{URL: "redis://:secret@remote:6380/3", PoolSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "remote:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)

	_, err = dialOptions(config.RedisConfig{URL: "::bad"})
	assert.Error(t, err)
	_, err = dialOptions(config.RedisConfig{})
	assert.Error(t, err)
}
