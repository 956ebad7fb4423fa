package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableTxErrorClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, isRetryableTxError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isRetryableTxError(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, isRetryableTxError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isRetryableTxError(errors.New("boom")))

	assert.True(t, isDupEntryError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDupEntryError(&pgconn.PgError{Code: "40001"}))
}

func TestRetryPolicyBackoffIsBounded(t *testing.T) {
	t.Parallel()

	policy := newTxRetryPolicy()
	for attempt := 0; attempt < 10; attempt++ {
		delay := policy.backoff(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, time.Duration(float64(policy.maxDelay)*(1+policy.jitterFactor)))
	}
}

func TestRetryPolicyRetriesSerializationFailures(t *testing.T) {
	t.Parallel()

	policy := &txRetryPolicy{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: time.Millisecond}

	calls := 0
	err := policy.do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	policy := &txRetryPolicy{maxRetries: 2, baseDelay: time.Millisecond, maxDelay: time.Millisecond}

	calls := 0
	err := policy.do(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	policy := newTxRetryPolicy()

	calls := 0
	err := policy.do(context.Background(), func() error {
		calls++
		return errors.New("syntax error")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	policy := &txRetryPolicy{maxRetries: 5, baseDelay: time.Hour, maxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.do(ctx, func() error {
		return &pgconn.PgError{Code: "40001"}
	})
	require.ErrorIs(t, err, context.Canceled)
}
