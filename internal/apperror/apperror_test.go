package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindSentinel(t *testing.T) {
	errOrderNotFound := New(KindNotFound, "order_not_found")

	err := fmt.Errorf("load: %w", errOrderNotFound.WithEntity("CMD-000001"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, errOrderNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, New(KindNotFound, "client_not_found")))
}

func TestWithEntityDoesNotMutateSentinel(t *testing.T) {
	sentinel := New(KindInsufficientStock, "insufficient_stock")

	named := sentinel.WithEntity("A1")

	assert.Equal(t, "", sentinel.Entity)
	assert.Equal(t, "A1", named.Entity)
	assert.Equal(t, "insufficient_stock: A1", named.Error())
}

func TestIsRetryableOnlyForConflict(t *testing.T) {
	assert.True(t, IsRetryable(New(KindConflict, "lock_timeout").WithEntity("article:1")))
	assert.False(t, IsRetryable(New(KindInsufficientStock, "insufficient_stock")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := New(KindConflict, "lock_timeout").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindConflict, kind)
}
