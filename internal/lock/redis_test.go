package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, mr *miniredis.Miniredis, ttl time.Duration) *RedisLocker {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := zerolog.Nop()
	return NewRedisLocker(client, RedisConfig{TTL: ttl, RetryInterval: 5 * time.Millisecond}, &logger)
}

func TestRedisLocker_ExclusiveAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newRedisLocker(t, mr, 10*time.Second)
	b := newRedisLocker(t, mr, 10*time.Second)
	ctx := context.Background()

	unlockA, err := a.Lock(ctx, "room:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("roombooking:lock:room:1"))

	acquired := make(chan Unlock, 1)
	go func() {
		unlockB, err := b.Lock(ctx, "room:1")
		if err == nil {
			acquired <- unlockB
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second instance acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()

	select {
	case unlockB := <-acquired:
		unlockB()
	case <-time.After(time.Second):
		t.Fatal("second instance never acquired the released lock")
	}
	assert.False(t, mr.Exists("roombooking:lock:room:1"))
}

func TestRedisLocker_DifferentKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newRedisLocker(t, mr, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlock1, err := l.Lock(ctx, "room:1")
	require.NoError(t, err)
	defer unlock1()

	unlock2, err := l.Lock(ctx, "room:2")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newRedisLocker(t, mr, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "room:1")
	require.NoError(t, err)

	// The key expired and another holder took it over.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("roombooking:lock:room:1", "someone-else"))

	unlock()
	got, err := mr.Get("roombooking:lock:room:1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_ContextCancelled(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("roombooking:lock:room:1", "held"))
	l := newRedisLocker(t, mr, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := l.Lock(ctx, "room:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, l.local.Len())
}
