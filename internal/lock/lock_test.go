package lock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), AttemptKey(1))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewKeyedMutex())
}

func TestKeyedMutex_EntriesRemovedWhenIdle(t *testing.T) {
	k := NewKeyedMutex()

	unlockA, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlockB, err := k.Lock(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 2, k.Len())

	unlockA()
	unlockA()
	unlockB()
	assert.Equal(t, 0, k.Len())
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	k := NewKeyedMutex()
	unlock, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = k.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, k.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlock, err := k.Lock(context.Background(), AttemptKey(1))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := k.Lock(ctx, AttemptKey(2))
	require.NoError(t, err)
	other()
}

func newRedisLocker(t *testing.T, opts ...RedisOption) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisLocker(client, logger, opts...), mr
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	l, _ := newRedisLocker(t, WithRetryDelay(time.Millisecond))
	exerciseMutualExclusion(t, l)
}

func TestRedisLocker_ReleaseOnlyOwnToken(t *testing.T) {
	l, mr := newRedisLocker(t)

	unlock, err := l.Lock(context.Background(), "attempt:7")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:attempt:7"))

	// Simulate TTL expiry and another holder taking over.
	mr.Set("lock:attempt:7", "someone-else")
	unlock()

	v, err := mr.Get("lock:attempt:7")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLocker_TimesOutWhileHeld(t *testing.T) {
	l, mr := newRedisLocker(t, WithRetryDelay(5*time.Millisecond))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)

	unlock()
	assert.False(t, mr.Exists("lock:k"))
}

func TestRedisLocker_TTL(t *testing.T) {
	l, mr := newRedisLocker(t, WithTTL(time.Second))

	_, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("lock:k"))
}
