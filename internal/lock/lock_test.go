package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SameKeySerializes(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "room:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlock1, err := km.Lock(ctx, "room:1")
	require.NoError(t, err)
	defer unlock1()

	done := make(chan struct{})
	go func() {
		unlock2, err := km.Lock(ctx, "room:2")
		if err == nil {
			unlock2()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on room:2 blocked behind room:1")
	}
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "room:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "room:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, km.Len())

	unlock, err = km.Lock(context.Background(), "room:1")
	require.NoError(t, err)
	unlock()
}
