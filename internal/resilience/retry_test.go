package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("busy"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("down"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return errors.New("unauthorized")
	})
	require.EqualError(t, err, "unauthorized")
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, fastPolicy(), func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("busy"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_OnRetryAndShouldRetry(t *testing.T) {
	p := fastPolicy()
	p.ShouldRetry = func(error) bool { return true }
	var attempts []int
	p.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_ = Retry(context.Background(), p, func(context.Context) error {
		return errors.New("anything")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetryVal(t *testing.T) {
	val, err := RetryVal(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)

	val, err = RetryVal(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		return "partial", errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, val)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}.withDefaults()
	assert.Equal(t, 100*time.Millisecond, p.backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.backoff(2))
	assert.Equal(t, time.Second, p.backoff(10))

	p.Jitter = 0.5
	for i := 0; i < 50; i++ {
		d := p.backoff(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestPolicyFrom(t *testing.T) {
	p := PolicyFrom(1, 20, 0)
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, 20*time.Millisecond, p.InitialBackoff)
	assert.Equal(t, DefaultPolicy().MaxBackoff, p.MaxBackoff)

	b := BreakerConfigFrom(0, 5)
	assert.Equal(t, DefaultBreakerConfig().FailureThreshold, b.FailureThreshold)
	assert.Equal(t, 5*time.Second, b.ResetTimeout)
}
