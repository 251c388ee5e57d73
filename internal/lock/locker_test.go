package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker(time.Second)

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "article:1")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLockerTimesOutWithConflict(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "order:1")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), "order:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.True(t, apperror.IsRetryable(err))

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "order:1", appErr.Entity)
}

func TestLocalLockerReleasesPartialAcquisition(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)

	releaseB, err := locker.Acquire(context.Background(), "b")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "a", "b")
	require.Error(t, err)

	// "a" was taken then rolled back, so it must be free again.
	releaseA, err := locker.Acquire(context.Background(), "a")
	require.NoError(t, err)
	releaseA()
	releaseB()
}

func TestLocalLockerReleaseIsIdempotent(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "k", "k")
	require.NoError(t, err)
	release()
	release()

	again, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	again()
}

func TestNormalizeKeysSortsAndDedupes(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, normalizeKeys([]string{"c", "a", " ", "b", "a"}))
}

func TestInstrumentedLockerPassesThrough(t *testing.T) {
	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	locker := Instrument(NewLocalLocker(20*time.Millisecond), metrics.Jobs(), m)

	release, err := locker.Acquire(context.Background(), "invoice:7")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "invoice:7")
	assert.True(t, errors.Is(err, ErrLockTimeout))

	release()
	release, err = locker.Acquire(context.Background(), "invoice:7")
	require.NoError(t, err)
	release()
}

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "article", resourceOf([]string{"order:3", "article:2"}))
	assert.Equal(t, "unknown", resourceOf(nil))
}
