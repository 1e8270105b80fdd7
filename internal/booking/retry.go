package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
)

// RetryPolicy bounds how hard the store tries before giving up.
// Attempt n waits (n-1)*Delay before running, and each attempt races its own Timeout.
type RetryPolicy struct {
	Attempts int
	Timeout  time.Duration
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts of 20s each, waiting 1s then 2s between them.
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 3,
	Timeout:  20 * time.Second,
	Delay:    time.Second,
}

// RetryingRepository applies a RetryPolicy to every write of the wrapped
// Repository. Reads pass through. ErrDuplicate and ErrNotFound are final and
// never retried; any other failure surfaces as *StoreError once attempts run out.
type RetryingRepository struct {
	Repository
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryingRepository(repo Repository, policy RetryPolicy, logger *slog.Logger) *RetryingRepository {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingRepository{
		Repository: repo,
		policy:     policy,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

func (r *RetryingRepository) Create(ctx context.Context, b *Booking) error {
	return r.do(ctx, "create", func(ctx context.Context) error {
		return r.Repository.Create(ctx, b)
	})
}

func (r *RetryingRepository) UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error {
	return r.do(ctx, "update_status", func(ctx context.Context) error {
		return r.Repository.UpdateStatus(ctx, id, status, updatedAt)
	})
}

func (r *RetryingRepository) UpdateSchedule(ctx context.Context, id, date, slotTime string, updatedAt time.Time) error {
	return r.do(ctx, "update_schedule", func(ctx context.Context) error {
		return r.Repository.UpdateSchedule(ctx, id, date, slotTime, updatedAt)
	})
}

func (r *RetryingRepository) do(ctx context.Context, op string, fn func(context.Context) error) error {
	logger := logging.Component(ctx, r.logger, "booking_store", op)

	// Writes outlive the request that triggered them.
	base := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(base, time.Duration(attempt-1)*r.policy.Delay); err != nil {
				lastErr = err
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(base, r.policy.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 1 {
				logger.Info("store write succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotFound) {
			return err
		}

		lastErr = err
		logger.Warn("store write attempt failed", "attempt", attempt, "max_attempts", r.policy.Attempts, "error", err)
	}

	return &StoreError{Op: op, Attempts: r.policy.Attempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
