package lock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/gescom/internal/apperror"
)

// ErrLockTimeout is returned when a key could not be acquired within the
// configured timeout. It is retryable.
var ErrLockTimeout = apperror.New(apperror.KindConflict, "lock_timeout")

// Release frees every key taken by a single Acquire call.
type Release func()

// Locker serializes writers per business key. Acquire takes every key or none
// and never blocks past the locker timeout.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

func Key(resource, id string) string {
	return resource + ":" + strings.TrimSpace(id)
}

// normalizeKeys sorts and deduplicates keys so concurrent callers always take
// locks in the same order.
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocalLocker(timeout time.Duration) *LocalLocker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LocalLocker{
		timeout: timeout,
		entries: make(map[string]*localEntry),
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalizeKeys(keys)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, key := range keys {
		entry := l.ref(key)
		select {
		case entry.ch <- struct{}{}:
			held = append(held, key)
		case <-timer.C:
			l.unref(key)
			release()
			return nil, ErrLockTimeout.WithEntity(key)
		case <-ctx.Done():
			l.unref(key)
			release()
			return nil, ErrLockTimeout.WithEntity(key).Wrap(ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *LocalLocker) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, key)
	}
}

func (l *LocalLocker) unlock(key string) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-entry.ch
	l.unref(key)
}
