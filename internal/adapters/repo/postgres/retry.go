package postgres

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	dupEntryCode          = "23505"
	serializationFailCode = "40001"
	deadlockDetectedCode  = "40P01"
)

// txRetryPolicy retries statements that failed on a serialization conflict.
type txRetryPolicy struct {
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	jitterFactor float64
}

func newTxRetryPolicy() *txRetryPolicy {
	return &txRetryPolicy{
		maxRetries:   3,
		baseDelay:    20 * time.Millisecond,
		maxDelay:     500 * time.Millisecond,
		jitterFactor: 0.25,
	}
}

func (p *txRetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	if p.jitterFactor > 0 {
		j := (rand.Float64()*2 - 1) * p.jitterFactor
		delay = delay + (delay * j)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func (p *txRetryPolicy) do(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil || !isRetryableTxError(err) || attempt >= p.maxRetries {
			return err
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == serializationFailCode || pgErr.SQLState() == deadlockDetectedCode
	}
	return false
}

func isDupEntryError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == dupEntryCode
}
