package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

func TestWithRetry_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_SuccessAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_AllAttemptsFail(t *testing.T) {
	sentinel := errors.New("permanent failure")
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "operation failed after 3 attempts")
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig(5)
	// MaxDelay не должен срезать задержку, иначе попытки успевают
	// закончиться до отмены
	config.InitialDelay = 100 * time.Millisecond
	config.MaxDelay = time.Second

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WithRetry(ctx, config, func(ctx context.Context) error {
		calls++
		return errors.New("failure")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestCalculateDelay_Backoff(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	assert.Equal(t, time.Second, calculateDelay(1, config))
	assert.Equal(t, 2*time.Second, calculateDelay(2, config))
	assert.Equal(t, 4*time.Second, calculateDelay(3, config))
	// Ограничивается MaxDelay
	assert.Equal(t, 10*time.Second, calculateDelay(5, config))
}
