package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-dq-pipeline/internal/model"
)

var fastRetry = model.RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      time.Millisecond,
	MaxDelay:          5 * time.Millisecond,
	BackoffMultiplier: 2,
}

func TestRetry(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name         string
		cfg          model.RetryConfig
		failures     int
		permanent    bool
		wantAttempts int
		wantErr      bool
	}{
		{name: "first attempt succeeds", cfg: fastRetry, failures: 0, wantAttempts: 1},
		{name: "succeeds after retries", cfg: fastRetry, failures: 2, wantAttempts: 3},
		{name: "gives up", cfg: fastRetry, failures: 5, wantAttempts: 3, wantErr: true},
		{name: "permanent error stops immediately", cfg: fastRetry, failures: 5, permanent: true, wantAttempts: 1, wantErr: true},
		{name: "zero attempts runs once", cfg: model.RetryConfig{}, failures: 5, wantAttempts: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Retry(context.Background(), tt.cfg, func(attempt int) error {
				attempts++
				assert.Equal(t, attempts, attempt)
				if attempts <= tt.failures {
					if tt.permanent {
						return Permanent(errBoom)
					}
					return errBoom
				}
				return nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)
		})
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := model.RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}

	attempts := 0
	err := Retry(ctx, cfg, func(int) error {
		attempts++
		cancel()
		return errors.New("unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "retry cancelled after 1 attempts")
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestBackoffDelay(t *testing.T) {
	cfg := model.RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(cfg, 2))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(cfg, 3))
	assert.Equal(t, time.Second, backoffDelay(cfg, 10))

	cfg.Jitter = true
	for i := 0; i < 20; i++ {
		d := backoffDelay(cfg, 1)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}
