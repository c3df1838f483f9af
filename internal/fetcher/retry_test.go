package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTemporary = errors.New("temporary error")

func TestRetryWithBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		if attempts == 3 {
			return nil
		}
		return errTemporary
	})
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_MaxRetriesExceeded(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return errTemporary
	})
	if !errors.Is(err, errTemporary) {
		t.Fatalf("Expected last error, got %v", err)
	}
	// initial + 3 retries
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_ZeroRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	_ = RetryWithBackoff(context.Background(), 0, time.Millisecond, func() error {
		attempts++
		return errTemporary
	})
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", attempts)
	}
}

func TestRetryWithBackoff_PermanentError(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("not found")

	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		return &permanentError{err: cause}
	})
	if err != cause {
		t.Errorf("Expected unwrapped cause, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for permanent error, got %d", attempts)
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := RetryWithBackoff(ctx, 5, time.Hour, func() error {
		attempts++
		cancel()
		return errTemporary
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}
