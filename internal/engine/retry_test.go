package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	}, IsTransientError)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_NonTransientFailsImmediately(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		return errors.New("InvalidResourceName")
	}, IsTransientError)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		return errors.New("too many requests")
	}, IsTransientError)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 4, calls)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(errors.New("request was Throttled")))
	assert.True(t, IsTransientError(errors.New("i/o timeout")))
	assert.False(t, IsTransientError(errors.New("authorization failed")))
	assert.False(t, IsTransientError(nil))
}
