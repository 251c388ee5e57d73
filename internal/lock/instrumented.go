package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/gescom/internal/observability/metrics"
)

type instrumentedLocker struct {
	next    Locker
	jobs    *metrics.JobMetrics
	metrics *metrics.Metrics
}

// Instrument reports lock wait time and timeouts per resource (the key prefix
// before ':'). Nil recorders are skipped.
func Instrument(next Locker, jobs *metrics.JobMetrics, m *metrics.Metrics) Locker {
	if jobs == nil && m == nil {
		return next
	}
	return &instrumentedLocker{next: next, jobs: jobs, metrics: m}
}

func (l *instrumentedLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	start := time.Now()
	release, err := l.next.Acquire(ctx, keys...)
	resource := resourceOf(keys)
	if l.jobs != nil {
		l.jobs.ObserveLockWait(resource, time.Since(start))
	}
	if errors.Is(err, ErrLockTimeout) {
		l.metrics.RecordLockConflict(ctx, resource)
	}
	return release, err
}

func resourceOf(keys []string) string {
	for _, key := range normalizeKeys(keys) {
		if i := strings.IndexByte(key, ':'); i > 0 {
			return key[:i]
		}
	}
	return "unknown"
}
